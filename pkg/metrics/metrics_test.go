package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, m Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestMetricsExposition(t *testing.T) {
	m := New("v1.2.3", "wespeaker-voxceleb-resnet34-LM")
	m.IncrementHTTPRequests()
	m.IncrementHTTPRequests()
	m.IncrementHTTPErrors()
	m.ObserveAPIEndpointDuration("extract", "POST", "200", 0.01)
	m.ObserveExtraction("sliding")
	m.ObserveComparison("same speaker")
	m.ObserveUpload(2048)
	m.ObserveSweep(3)

	body := scrape(t, m)
	for _, want := range []string{
		"wespeaker_http_requests_total 2",
		"wespeaker_http_errors_total 1",
		`wespeaker_api_time_seconds_count{handler="extract",method="POST",status_code="200"} 1`,
		`wespeaker_speaker_extractions_total{window_type="sliding"} 1`,
		`wespeaker_speaker_comparisons_total{verdict="same speaker"} 1`,
		"wespeaker_http_upload_bytes_total 2048",
		"wespeaker_system_uploads_swept_total 3",
		`wespeaker_system_info{model="wespeaker-voxceleb-resnet34-LM",version="v1.2.3"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestNoopMetrics(t *testing.T) {
	var m Metrics = NoopMetrics{}
	m.IncrementHTTPRequests()
	m.ObserveExtraction("whole")
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}
