package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/artpar/erpkit/adapters/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNew(t *testing.T) {
	// Use a new registry to avoid conflicts with other tests
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	if m == nil {
		t.Fatal("NewWithRegistry returned nil")
	}
	if m.RequestsTotal == nil || m.MutationsTotal == nil || m.ExportsTotal == nil || m.ConfigReloads == nil {
		t.Error("collector has nil metrics")
	}
}

func TestRecordMutation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.RecordMutation("nhan_su", "create", metrics.ResultOK)
	m.RecordMutation("nhan_su", "create", metrics.ResultOK)
	m.RecordMutation("nhan_su", "update", metrics.ResultInvalid)
	m.RecordMutation("nhan_su", "delete", metrics.ResultError)

	tests := []struct {
		op, result string
		want       float64
	}{
		{"create", "ok", 2},
		{"update", "invalid", 1},
		{"delete", "error", 1},
	}
	for _, tt := range tests {
		got := value(t, m.MutationsTotal.WithLabelValues("nhan_su", tt.op, tt.result))
		if got != tt.want {
			t.Errorf("mutations{%s,%s} = %v, want %v", tt.op, tt.result, got, tt.want)
		}
	}
	if got := value(t, m.ValidationFailures.WithLabelValues("nhan_su")); got != 1 {
		t.Errorf("validation failures = %v", got)
	}
}

func TestRecordRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.RecordRequest("GET", "/api/{module}", 200, 30*time.Millisecond)
	m.RecordRequest("GET", "/api/{module}", 204, time.Millisecond)
	m.RecordRequest("POST", "/api/{module}", 422, time.Millisecond)

	if got := value(t, m.RequestsTotal.WithLabelValues("GET", "/api/{module}", "2xx")); got != 2 {
		t.Errorf("2xx = %v", got)
	}
	if got := value(t, m.RequestsTotal.WithLabelValues("POST", "/api/{module}", "4xx")); got != 1 {
		t.Errorf("4xx = %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "erpkit_request_duration_seconds" {
			found = true
		}
	}
	if !found {
		t.Error("duration histogram not gathered")
	}
}

func TestRecordExportAndReload(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.RecordExport("excel", 120, nil)
	m.RecordExport("pdf", 0, errors.New("font missing"))
	if got := value(t, m.ExportsTotal.WithLabelValues("excel", "ok")); got != 1 {
		t.Errorf("excel ok = %v", got)
	}
	if got := value(t, m.ExportsTotal.WithLabelValues("pdf", "error")); got != 1 {
		t.Errorf("pdf error = %v", got)
	}

	at := time.Unix(1700000000, 0)
	m.RecordReload(nil, at)
	m.RecordReload(errors.New("bad yaml"), at)
	if value(t, m.ConfigReloads) != 1 || value(t, m.ConfigReloadErrors) != 1 {
		t.Error("reload counters wrong")
	}
	if value(t, m.ConfigLastReload) != 1700000000 {
		t.Error("last reload timestamp not set")
	}
}

func TestAddFeedClients(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	m.AddFeedClients(1)
	m.AddFeedClients(1)
	m.AddFeedClients(-1)
	if got := value(t, m.FeedClients); got != 1 {
		t.Errorf("feed clients = %v, want 1", got)
	}
}

func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	}
	t.Fatalf("unsupported metric type")
	return 0
}
