package models

import "time"

// Нормализованные итоги обработки скана (можно расширять).
const (
	OutcomeReturned    = "RETURNED"
	OutcomeAlreadyDone = "ALREADY_DONE"
	OutcomeNotFound    = "NOT_FOUND"
)

// OrderContext — контекст заказа из lookup-сервиса; есть только у RETURNED.
type OrderContext struct {
	ExternalOrderID string  `json:"externalOrderId"`
	CustomerName    string  `json:"customerName"`
	RiskScore       float64 `json:"riskScore"`
	RiskLevel       string  `json:"riskLevel"`
}

// ScanRequest живёт только на время сетевого запроса и принадлежит диспетчеру.
type ScanRequest struct {
	ID          uint64
	Token       string
	SubmittedAt time.Time
}

// Resolution — итог одного ScanRequest, ровно один на запрос.
type Resolution struct {
	ID      uint64
	Token   string
	Outcome string
	Message string
	Order   *OrderContext
}

type HistoryRecord struct {
	ID            uint64        `json:"id"`
	Token         string        `json:"token"`
	Outcome       string        `json:"outcome"`
	Message       string        `json:"message,omitempty"`
	Order         *OrderContext `json:"order,omitempty"`
	ResolvedAt    time.Time     `json:"resolvedAt"`
	FormattedTime string        `json:"formattedTime"`
}
