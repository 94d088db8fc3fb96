package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"eriehall.dev/gapfinder/engine"
)

func testReport() *engine.Report {
	rep := engine.NewReport(time.Date(2026, time.January, 19, 12, 0, 0, 0, time.UTC))
	date := engine.DateKey{Year: 2026, Month: time.January, Day: 19}
	rep.AddCourt("Court 1", engine.MergedSchedule{
		Gaps: map[engine.DateKey][]engine.GapInterval{
			date: {{Date: date, StartHour: 6, EndHour: 9}},
		},
	})
	return rep
}

func TestReportEndpoint(t *testing.T) {
	srv := NewServer(nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	// no report published yet
	resp, err := http.Get(ts.URL + "/api/v1/report")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("before publish: status = %d, want 503", resp.StatusCode)
	}

	if err := srv.Publish(testReport()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	resp, err = http.Get(ts.URL + "/api/v1/report")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body struct {
		GeneratedAt time.Time                    `json:"generated_at"`
		Courts      map[string][]json.RawMessage `json:"courts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if _, ok := body.Courts["Court 1"]; !ok {
		t.Errorf("report missing Court 1: %+v", body.Courts)
	}
	if !body.GeneratedAt.Equal(time.Date(2026, time.January, 19, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("generated_at = %v", body.GeneratedAt)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
		Slots  int    `json:"report_slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q", body.Status)
	}
	if body.Slots != 0 {
		t.Errorf("slots = %d before publish, want 0", body.Slots)
	}

	if err := srv.Publish(testReport()); err != nil {
		t.Fatal(err)
	}
	resp2, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if err := json.NewDecoder(resp2.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Slots != 1 {
		t.Errorf("slots = %d after publish, want 1", body.Slots)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "gapfinder_test_gauge"})
	reg.MustRegister(gauge)
	gauge.Set(7)

	srv := NewServer(reg)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestPublishReplacesSnapshot(t *testing.T) {
	srv := NewServer(nil)

	first := testReport()
	if err := srv.Publish(first); err != nil {
		t.Fatal(err)
	}

	second := engine.NewReport(time.Date(2026, time.January, 20, 12, 0, 0, 0, time.UTC))
	if err := srv.Publish(second); err != nil {
		t.Fatal(err)
	}

	snap := srv.report.Load()
	if snap == nil {
		t.Fatal("no snapshot after publish")
	}
	if !snap.generatedAt.Equal(second.GeneratedAt) {
		t.Errorf("snapshot generatedAt = %v, want %v", snap.generatedAt, second.GeneratedAt)
	}
}
