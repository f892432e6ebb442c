package fake

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/BearBump/ScanDesk/internal/integrations/orderlookup"
)

// FakeClient — локальная заглушка lookup-сервиса для демо и разработки.
// Итог детерминирован по трек-номеру, чтобы сценарии воспроизводились.
type FakeClient struct{}

func New() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Scan(ctx context.Context, trackingNumber string) (orderlookup.ScanResult, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(trackingNumber))
	v := h.Sum32()

	switch {
	case v%10 == 0:
		return orderlookup.ScanResult{
			Result:  orderlookup.ResultNotFound,
			Message: "no matching order",
		}, nil
	case v%3 == 0:
		return orderlookup.ScanResult{
			Result:  orderlookup.ResultAlreadyProcessed,
			Message: "order already marked as returned",
		}, nil
	}

	score := float64(v % 101)
	level := "LOW"
	switch {
	case score >= 70:
		level = "HIGH"
	case score >= 40:
		level = "MEDIUM"
	}

	return orderlookup.ScanResult{
		Result:  orderlookup.ResultMarkedReturned,
		Message: "marked as returned",
		Order: &orderlookup.Order{
			ExternalOrderID: fmt.Sprintf("SO-%d", v%100000),
			CustomerName:    "Demo Customer",
			RiskScore:       score,
			RiskLevel:       level,
		},
	}, nil
}

func (f *FakeClient) TrainingStats(ctx context.Context) (orderlookup.TrainingStats, error) {
	return orderlookup.TrainingStats{
		Total:          1200,
		Unused:         340,
		Label0:         800,
		Label1:         400,
		Threshold:      500,
		ReadyToRetrain: false,
	}, nil
}
