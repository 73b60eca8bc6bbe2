package metrics

import (
	"fmt"

	dto "github.com/prometheus/client_model/go"
)

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(pairs []*dto.LabelPair, name, value string) bool {
	for _, lp := range pairs {
		if lp.GetName() == name {
			return lp.GetValue() == value
		}
	}
	return false
}

// fetchCounterValue returns the counter whose label matches name=value.
func fetchCounterValue(mfs []*dto.MetricFamily, family, name, value string) (float64, error) {
	mf := findMetricFamily(mfs, family)
	if mf == nil {
		return 0, fmt.Errorf("no family %q", family)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), name, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("%s{%s=%q} not found", family, name, value)
}
