package taskpool

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherFamily(t *testing.T, name string) *dto.MetricFamily {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() == name {
			return fam
		}
	}
	t.Fatalf("metric family %q not found", name)
	return nil
}

func TestMetricsRegistered(t *testing.T) {
	for _, name := range []string{
		"puppilot_taskpool_running",
		"puppilot_taskpool_waiting",
		"puppilot_taskpool_admitted_total",
	} {
		gatherFamily(t, name)
	}
}

func TestRunningGaugeTracksAdmission(t *testing.T) {
	p := New(1)
	before := gatherFamily(t, "puppilot_taskpool_admitted_total").GetMetric()[0].GetCounter().GetValue()

	var during float64
	err := p.Run(context.Background(), func(context.Context) error {
		during = gatherFamily(t, "puppilot_taskpool_running").GetMetric()[0].GetGauge().GetValue()
		return nil
	})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, during, 1.0)
	after := gatherFamily(t, "puppilot_taskpool_admitted_total").GetMetric()[0].GetCounter().GetValue()
	assert.Equal(t, before+1, after)
}
