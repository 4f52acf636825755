// ABOUTME: Tests for the studio error taxonomy
// ABOUTME: Checks type matching and the retry trait
package studioerr

import (
	"errors"
	"testing"

	"github.com/joomcode/errorx"
)

func TestTypeMatching(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		edit      bool
		missing   bool
		decode    bool
	}{
		{"provider failure", ProviderFailure.New("dial failed"), true, false, false, false},
		{"provider rejected", ProviderRejected.New("bad request"), false, false, false, false},
		{"decorated provider failure", errorx.Decorate(ProviderFailure.New("503"), "open stream"), true, false, false, false},
		{"invalid edit", InvalidEdit.New("start %.2f >= end %.2f", 5.0, 3.0), false, true, false, false},
		{"missing prerequisite", MissingPrerequisite.New("no loaded buffer"), false, false, true, false},
		{"decode failure", DecodeFailure.Wrap(errors.New("short"), "wav"), false, false, false, true},
		{"plain error", errors.New("boom"), false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable: expected %v, got %v", tt.retryable, got)
			}
			if got := IsInvalidEdit(tt.err); got != tt.edit {
				t.Errorf("IsInvalidEdit: expected %v, got %v", tt.edit, got)
			}
			if got := IsMissingPrerequisite(tt.err); got != tt.missing {
				t.Errorf("IsMissingPrerequisite: expected %v, got %v", tt.missing, got)
			}
			if got := IsDecodeFailure(tt.err); got != tt.decode {
				t.Errorf("IsDecodeFailure: expected %v, got %v", tt.decode, got)
			}
		})
	}
}
