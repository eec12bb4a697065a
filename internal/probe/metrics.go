package probe

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricName is the latency histogram exported by every Client.
const MetricName = "okapi_probe_request_duration_seconds"

var durationBuckets = []float64{
	0.001, // 1ms
	0.005,
	0.01, // 10ms
	0.05,
	0.1, // 100ms
	0.25,
	0.5,
	1.0, // 1s
	2.0,
	5.0,
}

type transport struct {
	next     http.RoundTripper
	duration *prometheus.HistogramVec
}

func newTransport(next http.RoundTripper, reg prometheus.Registerer) *transport {
	return &transport{
		next: next,
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricName,
			Help:    "Time spent on probe requests.",
			Buckets: durationBuckets,
		}, []string{"method", "host", "uri", "status_code"}),
	}
}

// RoundTrip observes every attempt. Failed attempts are labeled "error".
func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	t.duration.WithLabelValues(req.Method, req.URL.Host, req.URL.Path, status).Observe(time.Since(start).Seconds())
	return resp, err
}
