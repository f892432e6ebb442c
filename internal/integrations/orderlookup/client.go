package orderlookup

import "context"

// Значения result у lookup-сервиса (он же владеет идемпотентностью).
const (
	ResultMarkedReturned   = "marked_returned"
	ResultAlreadyProcessed = "already_processed"
	ResultNotFound         = "not_found"
)

type Order struct {
	ExternalOrderID string  `json:"external_order_id"`
	CustomerName    string  `json:"customer_name"`
	RiskScore       float64 `json:"risk_score"`
	RiskLevel       string  `json:"risk_level"`
}

type ScanResult struct {
	Result  string `json:"result"`
	Message string `json:"message"`
	Order   *Order `json:"order,omitempty"`
}

// TrainingStats — агрегаты пайплайна переобучения, read-only.
type TrainingStats struct {
	Total          int  `json:"total"`
	Unused         int  `json:"unused"`
	Label0         int  `json:"label0"`
	Label1         int  `json:"label1"`
	Threshold      int  `json:"threshold"`
	ReadyToRetrain bool `json:"readyToRetrain"`
}

type Client interface {
	Scan(ctx context.Context, trackingNumber string) (ScanResult, error)
	TrainingStats(ctx context.Context) (TrainingStats, error)
}
