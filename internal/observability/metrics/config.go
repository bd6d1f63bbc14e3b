// Package metrics exposes the HTTP and background-worker instruments.
package metrics

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Config identifies the emitting service on every instrument.
type Config struct {
	ServiceName string
	Environment string
}

var sensitiveAttributeKeys = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"authorization",
}

// FilterAttributes drops empty and sensitive attributes to keep cardinality
// and leakage under control.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		key := strings.ToLower(strings.TrimSpace(string(attr.Key)))
		if key == "" {
			continue
		}
		if isSensitiveAttribute(key) {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

func isSensitiveAttribute(key string) bool {
	for _, needle := range sensitiveAttributeKeys {
		if strings.Contains(key, needle) {
			return true
		}
	}
	return false
}
