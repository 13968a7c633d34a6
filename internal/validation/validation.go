package validation

import (
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidUUID is returned for identifiers that do not parse as UUIDs.
var ErrInvalidUUID = fmt.Errorf("invalid UUID format")

// ValidateUUID checks that an account, trade or subscription identifier
// is a well-formed UUID.
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidUUID, id)
	}
	return nil
}
