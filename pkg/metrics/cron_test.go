package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronMetricsSplitsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronMetrics(reg)
	m.ObserveRun("subscription_renewals", 120*time.Millisecond, nil)
	m.ObserveRun("subscription_renewals", 80*time.Millisecond, errors.New("boom"))
	m.ObserveRun("subscription_renewals", 10*time.Millisecond, nil)
	m.IncSkipped()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	runs := findMetricFamily(mfs, "cron_job_runs_total")
	require.NotNil(t, runs)
	byOutcome := map[string]float64{}
	for _, metric := range runs.GetMetric() {
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == "outcome" {
				byOutcome[lp.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, map[string]float64{"ok": 2, "error": 1}, byOutcome)

	hist := findMetricFamily(mfs, "cron_job_duration_seconds")
	require.NotNil(t, hist)
	require.Len(t, hist.GetMetric(), 1)
	assert.EqualValues(t, 3, hist.GetMetric()[0].GetHistogram().GetSampleCount())

	skipped := findMetricFamily(mfs, "cron_cycles_skipped_total")
	require.NotNil(t, skipped)
	assert.EqualValues(t, 1, skipped.GetMetric()[0].GetCounter().GetValue())
}

func TestCronMetricsNilSafe(t *testing.T) {
	m := NewCronMetrics(nil)
	assert.Nil(t, m)
	m.ObserveRun("", time.Second, nil)
	m.IncSkipped()
}

func TestCronMetricsEmptyJobLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronMetrics(reg)
	m.ObserveRun("", time.Millisecond, nil)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	v, err := fetchCounterValue(mfs, "cron_job_runs_total", "job", "unknown")
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "unknown", normalizeLabel(""))
	assert.Equal(t, "settle", normalizeLabel("settle"))
}
