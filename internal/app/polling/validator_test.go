package polling

import (
	"testing"

	"github.com/evercare/livepoll/internal/domain"
)

func TestValidateDemographics(t *testing.T) {
	age := 42
	zero := 0
	allRequired := []string{domain.DemographicName, domain.DemographicGender, domain.DemographicAge}

	tests := []struct {
		name        string
		required    []string
		input       domain.Demographics
		wantMissing []string
	}{
		{
			name:     "nothing required",
			required: nil,
			input:    domain.Demographics{},
		},
		{
			name:     "all present",
			required: allRequired,
			input:    domain.Demographics{Name: "Ana", Gender: "female", Age: &age},
		},
		{
			name:        "all missing reported together",
			required:    allRequired,
			input:       domain.Demographics{},
			wantMissing: []string{"name", "gender", "age"},
		},
		{
			name:        "blank text counts as missing",
			required:    []string{domain.DemographicName},
			input:       domain.Demographics{Name: "   "},
			wantMissing: []string{"name"},
		},
		{
			name:     "age zero is a supplied value",
			required: []string{domain.DemographicAge},
			input:    domain.Demographics{Age: &zero},
		},
		{
			name:        "age nil is missing",
			required:    []string{domain.DemographicAge},
			input:       domain.Demographics{Name: "Ana"},
			wantMissing: []string{"age"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDemographics(tt.input, tt.required)
			if len(tt.wantMissing) == 0 {
				if err != nil {
					t.Fatalf("expected valid demographics, got %v", err)
				}
				return
			}

			ve, ok := domain.AsValidationError(err)
			if !ok {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(ve.MissingFields) != len(tt.wantMissing) {
				t.Fatalf("expected missing %v, got %v", tt.wantMissing, ve.MissingFields)
			}
			for i, field := range tt.wantMissing {
				if ve.MissingFields[i] != field {
					t.Fatalf("expected missing %v, got %v", tt.wantMissing, ve.MissingFields)
				}
			}
		})
	}
}
