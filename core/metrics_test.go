package core

import (
	"context"
	"testing"
	"time"
)

type capturingMetricsRecorder struct {
	counters   []string
	histograms []string
	tags       []map[string]string
}

func (r *capturingMetricsRecorder) IncCounter(_ context.Context, name string, _ int64, tags map[string]string) {
	r.counters = append(r.counters, name)
	r.tags = append(r.tags, tags)
}

func (r *capturingMetricsRecorder) ObserveHistogram(_ context.Context, name string, _ float64, tags map[string]string) {
	r.histograms = append(r.histograms, name)
	r.tags = append(r.tags, tags)
}

func TestBridgeMetricName(t *testing.T) {
	cases := []struct {
		operation string
		suffix    string
		want      string
	}{
		{operation: "handle_callback", suffix: "total", want: "bridge.handle_callback.total"},
		{operation: " Sweep_Sessions ", suffix: "duration_ms", want: "bridge.sweep_sessions.duration_ms"},
		{operation: "", suffix: "total", want: "bridge.unknown.total"},
	}
	for _, tc := range cases {
		if got := bridgeMetricName(tc.operation, tc.suffix); got != tc.want {
			t.Fatalf("bridgeMetricName(%q, %q) = %q, want %q", tc.operation, tc.suffix, got, tc.want)
		}
	}
}

func TestObserveOperation_EmitsBridgeMetrics(t *testing.T) {
	recorder := &capturingMetricsRecorder{}
	service := newTestService(t, &stubPipeline{}, WithMetricsRecorder(recorder))
	recorder.counters = nil
	recorder.histograms = nil
	recorder.tags = nil

	service.observeOperation(context.Background(), time.Now(), "sweep_sessions", nil, map[string]any{"evicted": 3})

	if len(recorder.counters) != 1 || recorder.counters[0] != "bridge.sweep_sessions.total" {
		t.Fatalf("unexpected counters %v", recorder.counters)
	}
	if len(recorder.histograms) != 1 || recorder.histograms[0] != "bridge.sweep_sessions.duration_ms" {
		t.Fatalf("unexpected histograms %v", recorder.histograms)
	}
	if recorder.tags[0]["operation"] != "sweep_sessions" || recorder.tags[0]["status"] != "success" {
		t.Fatalf("unexpected tags %v", recorder.tags[0])
	}
}

func TestNopMetricsRecorderSatisfiesContract(t *testing.T) {
	var recorder MetricsRecorder = NopMetricsRecorder{}
	recorder.IncCounter(context.Background(), "bridge.attach_socket.total", 1, nil)
	recorder.ObserveHistogram(context.Background(), "bridge.attach_socket.duration_ms", 1, map[string]string{"status": "success"})
}
