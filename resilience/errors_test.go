package resilience

import (
	"strings"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrCircuitOpen", ErrCircuitOpen},
		{"ErrMaxRetriesExceeded", ErrMaxRetriesExceeded},
		{"ErrTimeout", ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.HasPrefix(tt.err.Error(), "resilience: ") {
				t.Errorf("%s = %q, want resilience: prefix", tt.name, tt.err)
			}
		})
	}
}
