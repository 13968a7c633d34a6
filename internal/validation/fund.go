package validation

import (
	"fmt"
	"regexp"

	"github.com/fundval/fundval-backend/internal/apperrors"
)

// fundCodePattern matches the six-digit fund codes used by the market
// data providers.
var fundCodePattern = regexp.MustCompile(`^\d{6}$`)

// ValidateFundCode checks that a string is a six-digit fund code.
func ValidateFundCode(code string) error {
	if !fundCodePattern.MatchString(code) {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidFundCode, code)
	}
	return nil
}
