package validation

import (
	"strings"
	"time"

	"github.com/fundval/fundval-backend/internal/api/request"
)

// ValidateCreateSubscription validates a subscription creation request.
//
// Required fields:
//   - userId: Must be a valid UUID
//   - code: Must be a six-digit fund code
//   - email: Must be non-empty and contain an @
//
// Optional fields (validated if provided):
//   - thresholdUp: Must be >= 0; zero disables the up direction
//   - thresholdDown: Must be <= 0; zero disables the down direction
//   - digestTime: Must be HH:MM when digests are enabled
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateCreateSubscription(req request.CreateSubscriptionRequest) error {
	if err := ValidateUUID(req.UserID); err != nil {
		return err
	}
	if err := ValidateFundCode(req.Code); err != nil {
		return err
	}

	errors := make(map[string]string)

	if strings.TrimSpace(req.Email) == "" {
		errors["email"] = "email is required"
	} else if !strings.Contains(req.Email, "@") {
		errors["email"] = "invalid email address"
	}

	if req.ThresholdUp < 0 {
		errors["thresholdUp"] = "thresholdUp must be zero or positive"
	}
	if req.ThresholdDown > 0 {
		errors["thresholdDown"] = "thresholdDown must be zero or negative"
	}

	if req.EnableDigest {
		if _, err := time.Parse("15:04", req.DigestTime); err != nil {
			errors["digestTime"] = "digestTime must be HH:MM"
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}
