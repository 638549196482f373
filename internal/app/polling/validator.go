package polling

import (
	"strings"

	"github.com/evercare/livepoll/internal/domain"
)

// ValidateDemographics checks the submission against the poll's required-field
// policy and reports every missing field at once, not just the first. Text
// fields fail when absent or blank; age fails only when no value was supplied.
func ValidateDemographics(d domain.Demographics, required []string) error {
	if len(required) == 0 {
		return nil
	}

	var missing []string
	for _, field := range required {
		switch field {
		case domain.DemographicName:
			if strings.TrimSpace(d.Name) == "" {
				missing = append(missing, domain.DemographicName)
			}
		case domain.DemographicGender:
			if strings.TrimSpace(d.Gender) == "" {
				missing = append(missing, domain.DemographicGender)
			}
		case domain.DemographicAge:
			if d.Age == nil {
				missing = append(missing, domain.DemographicAge)
			}
		}
	}

	if len(missing) > 0 {
		return &domain.ValidationError{MissingFields: missing}
	}
	return nil
}
