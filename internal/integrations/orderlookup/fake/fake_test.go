package fake

import (
	"context"
	"testing"

	"github.com/BearBump/ScanDesk/internal/integrations/orderlookup"
	"github.com/stretchr/testify/require"
)

func TestFakeClient_Scan_deterministic(t *testing.T) {
	c := New()
	a, err := c.Scan(context.Background(), "TRK-000123")
	require.NoError(t, err)
	b, err := c.Scan(context.Background(), "TRK-000123")
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.NotEmpty(t, a.Result)

	if a.Result == orderlookup.ResultMarkedReturned {
		require.NotNil(t, a.Order)
		require.NotEmpty(t, a.Order.RiskLevel)
	}
}

func TestFakeClient_TrainingStats(t *testing.T) {
	c := New()
	st, err := c.TrainingStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 500, st.Threshold)
	require.Greater(t, st.Total, 0)
}
