package tracing

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsPaymentIdentifiers(t *testing.T) {
	filtered := SafeAttributes(
		attribute.String("http.method", "POST"),
		attribute.String("idempotency_key", "wallet-consume-778899"),
		attribute.String("payment_ref", "pix-e2e-445566"),
		attribute.String("party.connected_account", "acct_123"),
		attribute.Int("http.status_code", 200),
	)

	if len(filtered) != 2 {
		t.Fatalf("expected 2 attributes to survive, got %d", len(filtered))
	}
	for _, attr := range filtered {
		switch attr.Key {
		case "http.method", "http.status_code":
		default:
			t.Fatalf("unexpected attribute %s", attr.Key)
		}
	}
}

func TestSafeErrorHidesDetails(t *testing.T) {
	if SafeError(nil) != nil {
		t.Fatalf("nil error should stay nil")
	}
	err := errors.New("transfer pix-e2e-445566 failed")
	if got := SafeError(err).Error(); got == err.Error() {
		t.Fatalf("error details should not survive: %q", got)
	}
}
