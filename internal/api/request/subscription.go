package request

type CreateSubscriptionRequest struct {
	UserID           string  `json:"userId"`
	Code             string  `json:"code"`
	Email            string  `json:"email"`
	ThresholdUp      float64 `json:"thresholdUp,omitempty"`
	ThresholdDown    float64 `json:"thresholdDown,omitempty"`
	EnableVolatility bool    `json:"enableVolatility"`
	EnableDigest     bool    `json:"enableDigest"`
	DigestTime       string  `json:"digestTime,omitempty"`
}
