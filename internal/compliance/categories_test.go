package compliance

import (
	"errors"
	"reflect"
	"testing"
)

func TestValidateRunCompliance(t *testing.T) {
	tests := []struct {
		name        string
		triggerFull bool
		categories  []string
		wantErr     bool
	}{
		{"full check without categories", true, nil, false},
		{"partial check without categories", false, nil, true},
		{"valid categories", false, []string{"RUNNING_CONFIG", "IMAGE"}, false},
		{"lowercase categories accepted", false, []string{"psirt"}, false},
		{"invalid category", false, []string{"RUNNING_CONFIG", "BOGUS"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRunCompliance(tt.triggerFull, tt.categories)
			if tt.wantErr {
				var validationErr *ValidationError
				if !errors.As(err, &validationErr) {
					t.Errorf("ValidateRunCompliance = %v, want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateRunCompliance = %v, want nil", err)
			}
		})
	}
}

func TestExpandCategories(t *testing.T) {
	got := ExpandCategories([]string{"INTENT", "image", "NETWORK_SETTINGS"})
	want := []string{"APPLICATION_VISIBILITY", "FABRIC", "IMAGE", "NETWORK_PROFILE", "NETWORK_SETTINGS", "WORKFLOW"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandCategories = %v, want %v", got, want)
	}
}

func TestQuoteJoin(t *testing.T) {
	if got := QuoteJoin([]string{"IMAGE", "PSIRT"}); got != "'IMAGE', 'PSIRT'" {
		t.Errorf("QuoteJoin = %q, want %q", got, "'IMAGE', 'PSIRT'")
	}
	if got := QuoteJoin(nil); got != "" {
		t.Errorf("QuoteJoin(nil) = %q, want empty", got)
	}
}
