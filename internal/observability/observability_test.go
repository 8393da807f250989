package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"PerpIndexer/internal/observability"
)

func TestAnomalyReporter_SeverityAndCount(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLoggerTo(&buf, "test", zerolog.DebugLevel)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	var seen []observability.Anomaly
	r := observability.NewAnomalyReporter(logger, metrics, func(a observability.Anomaly) {
		seen = append(seen, a)
	})

	r.Report(observability.Anomaly{Class: observability.MissingReferent, Entity: "PositionOrder", Key: "9", Detail: "order not found"})
	r.Report(observability.Anomaly{Class: observability.Preexisting, Entity: "Price", Key: "1-10", Detail: "price exists"})

	if len(seen) != 2 {
		t.Fatalf("callback: got %d anomalies, want 2", len(seen))
	}

	dec := json.NewDecoder(&buf)
	var levels []string
	for dec.More() {
		var line map[string]interface{}
		if err := dec.Decode(&line); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		levels = append(levels, line["level"].(string))
	}
	if len(levels) != 2 || levels[0] != "error" || levels[1] != "warn" {
		t.Errorf("levels: got %v, want [error warn]", levels)
	}

	got := testutil.ToFloat64(metrics.Anomalies.WithLabelValues("missing_referent", "PositionOrder"))
	if got != 1 {
		t.Errorf("counter: got %v, want 1", got)
	}
}

func TestAnomalyReporter_NilIsNoop(t *testing.T) {
	var r *observability.AnomalyReporter
	r.Report(observability.Anomaly{Class: observability.UnknownKind})
}

func TestReadinessHandler(t *testing.T) {
	h := observability.NewHealthChecker()

	rec := httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("before ready: got %d, want 503", rec.Code)
	}

	h.SetReady(true)
	rec = httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ready: got %d, want 200", rec.Code)
	}

	h.AddCheck("store", func(context.Context) error { return errors.New("down") })
	rec = httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("failing check: got %d, want 503", rec.Code)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":      zerolog.InfoLevel,
		"debug": zerolog.DebugLevel,
		"WARN":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"bogus": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := observability.ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
