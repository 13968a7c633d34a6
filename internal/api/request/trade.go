package request

type CreateTradeRequest struct {
	AccountID string  `json:"accountId"`
	Code      string  `json:"code"`
	OpType    string  `json:"opType"`
	Amount    float64 `json:"amount,omitempty"`
	Shares    float64 `json:"shares,omitempty"`
	// TradeTime is an optional RFC 3339 timestamp for backdated entries;
	// empty means the trade was placed now.
	TradeTime string `json:"tradeTime,omitempty"`
}
