package server

import (
	"errors"
	"net/http"
	"testing"

	agreementdomain "github.com/caiohomem/assistente-sub001/internal/agreement/domain"
	negotiationdomain "github.com/caiohomem/assistente-sub001/internal/negotiation/domain"
	"github.com/caiohomem/assistente-sub001/internal/persistence"
	walletdomain "github.com/caiohomem/assistente-sub001/internal/wallet/domain"
)

func TestToAPIErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", agreementdomain.ErrAgreementNotFound, http.StatusNotFound},
		{"proposal not found", negotiationdomain.ErrProposalNotFound, http.StatusNotFound},
		{"cooldown", negotiationdomain.ErrAiCooldownActive, http.StatusTooManyRequests},
		{"pending limit", negotiationdomain.ErrProposalLimitExceeded, http.StatusTooManyRequests},
		{"stale version", persistence.ErrStaleVersion, http.StatusConflict},
		{"insufficient balance", walletdomain.ErrInsufficientBalance, http.StatusConflict},
		{"not draft", agreementdomain.ErrNotDraft, http.StatusConflict},
		{"session not open", negotiationdomain.ErrSessionNotOpen, http.StatusConflict},
		{"invalid amount", walletdomain.ErrInvalidAmount, http.StatusBadRequest},
		{"missing title", agreementdomain.ErrMissingTitle, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := toAPIError(tc.err)
			if got.Status != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, got.Status)
			}
		})
	}
}

func TestToAPIErrorKeepsExplicitAPIErrors(t *testing.T) {
	in := newValidationError("owner_id", "invalid_owner_id", "bad id")
	got := toAPIError(in)
	if got != in {
		t.Fatalf("explicit APIError should pass through unchanged")
	}
	if got.Status != http.StatusBadRequest || got.Field != "owner_id" {
		t.Fatalf("unexpected mapping: %+v", got)
	}
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	got := toAPIError(errors.New("pq: connection refused"))
	if got.Code != "internal_error" {
		t.Fatalf("internal detail leaked into code: %s", got.Code)
	}
}
