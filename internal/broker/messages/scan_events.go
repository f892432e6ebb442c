package messages

import "time"

// ScanResolved публикуется на каждый завершённый скан. Этот поток читает
// ML-сервис: на накопленных итогах он переобучает скоринговую модель.
type ScanResolved struct {
	ScanID  uint64 `json:"scan_id"`
	Token   string `json:"token"`
	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`

	Order *ScanOrder `json:"order,omitempty"`

	ResolvedAt time.Time `json:"resolved_at"`
}

type ScanOrder struct {
	ExternalOrderID string  `json:"external_order_id"`
	CustomerName    string  `json:"customer_name"`
	RiskScore       float64 `json:"risk_score"`
	RiskLevel       string  `json:"risk_level"`
}

// ScanRequested — токен от внешнего продюсера (например, storefront-плагина),
// который хочет прогнать скан через станцию без её HTTP-сервиса.
type ScanRequested struct {
	TrackingNumber string `json:"tracking_number"`
	Source         string `json:"source,omitempty"`
}
