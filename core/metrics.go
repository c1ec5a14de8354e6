package core

import (
	"context"
	"strings"
)

// Every bridge metric is named bridge.<operation>.<suffix> so one dashboard
// filter covers attach_socket, begin_login, handle_callback, and
// sweep_sessions alike.
const metricPrefix = "bridge"

func bridgeMetricName(operation, suffix string) string {
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	return metricPrefix + "." + operation + "." + strings.TrimSpace(suffix)
}

// NopMetricsRecorder discards every bridge metric. It backs services that
// did not install a MetricsRecorder, keeping login and sweep paths free of
// nil checks at the call sites.
type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// cloneTags shields recorders from mutation of the operation tag maps the
// service reuses across counter and histogram emissions.
func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

var _ MetricsRecorder = NopMetricsRecorder{}
