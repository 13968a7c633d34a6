package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/fundval/fundval-backend/internal/api/request"
	"github.com/fundval/fundval-backend/internal/model"
)

// ValidTradeOpType contains the allowed trade operation values.
var ValidTradeOpType = map[string]bool{
	model.TradeOpAdd: true, model.TradeOpReduce: true,
}

// ValidateCreateTrade validates a trade creation request.
// Checks all required fields and validates their formats and constraints.
//
// Required fields:
//   - accountId: Must be a valid UUID
//   - code: Must be a six-digit fund code
//   - opType: Must be one of: add, reduce
//   - amount: Must be positive for add trades
//   - shares: Must be positive for reduce trades
//   - tradeTime: Optional; must be RFC 3339 when present
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateCreateTrade(req request.CreateTradeRequest) error {
	if err := ValidateUUID(req.AccountID); err != nil {
		return err
	}
	if err := ValidateFundCode(req.Code); err != nil {
		return err
	}

	errors := make(map[string]string)

	if strings.TrimSpace(req.OpType) == "" {
		errors["opType"] = "opType is required"
	} else if !ValidTradeOpType[req.OpType] {
		errors["opType"] = fmt.Sprintf("invalid opType: %s", req.OpType)
	}

	switch req.OpType {
	case model.TradeOpAdd:
		if req.Amount <= 0.0 {
			errors["amount"] = "amount must be positive"
		}
	case model.TradeOpReduce:
		if req.Shares <= 0.0 {
			errors["shares"] = "shares must be positive"
		}
	}

	if req.TradeTime != "" {
		if _, err := time.Parse(time.RFC3339, req.TradeTime); err != nil {
			errors["tradeTime"] = "tradeTime must be an RFC 3339 timestamp"
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}
