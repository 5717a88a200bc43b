package metrics

import "net/http"

// NoopMetrics discards everything. Its handler answers 404.
type NoopMetrics struct{}

func (NoopMetrics) Handler() http.Handler                                { return http.NotFoundHandler() }
func (NoopMetrics) ObserveAPIEndpointDuration(_, _, _ string, _ float64) {}
func (NoopMetrics) IncrementHTTPRequests()                               {}
func (NoopMetrics) IncrementHTTPErrors()                                 {}
func (NoopMetrics) ObserveExtraction(string)                             {}
func (NoopMetrics) ObserveComparison(string)                             {}
func (NoopMetrics) ObserveUpload(int64)                                  {}
func (NoopMetrics) ObserveSweep(int)                                     {}
