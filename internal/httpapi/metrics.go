package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

func httpOpts(name, help string) prometheus.Opts {
	return prometheus.Opts{Namespace: "streamd", Subsystem: "http", Name: name, Help: help}
}

var (
	requestLabels = []string{"path", "method", "status"}

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts(httpOpts("requests_total", "HTTP requests by route, method and status.")),
		requestLabels)

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "streamd",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time until the handler returned; for /infer this covers the whole stream.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2.5, 10),
	}, requestLabels)

	// Time to first byte is the latency a streaming client perceives.
	httpFirstByte = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "streamd",
		Subsystem: "http",
		Name:      "first_byte_seconds",
		Help:      "Time until the first response byte was written.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2.5, 10),
	}, []string{"path"})

	httpResponseBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts(httpOpts("response_bytes_total", "Response body bytes written.")),
		[]string{"path"})

	httpInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts(httpOpts("inflight_requests", "Requests currently being served.")),
		[]string{"method"})

	backpressureTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts(httpOpts("backpressure_total", "Requests rejected with 429.")),
		[]string{"reason"})
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpFirstByte,
		httpResponseBytes, httpInflight, backpressureTotal)
}

// responseRecorder notes the status, body size and first write time. Flush
// is forwarded so NDJSON lines leave immediately.
type responseRecorder struct {
	http.ResponseWriter
	status    int
	bytes     int64
	firstByte time.Time
}

func (rr *responseRecorder) WriteHeader(code int) {
	if rr.status == 0 {
		rr.status = code
	}
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(p []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	if rr.firstByte.IsZero() && len(p) > 0 {
		rr.firstByte = time.Now()
	}
	n, err := rr.ResponseWriter.Write(p)
	rr.bytes += int64(n)
	return n, err
}

func (rr *responseRecorder) Flush() {
	if f, ok := rr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rr *responseRecorder) Unwrap() http.ResponseWriter { return rr.ResponseWriter }

// MetricsMiddleware records Prometheus metrics per chi route pattern.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w}
		start := time.Now()
		inflight := httpInflight.WithLabelValues(r.Method)
		inflight.Inc()
		defer inflight.Dec()

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		path := routeLabel(r)
		status := strconv.Itoa(rec.status)
		httpRequestsTotal.WithLabelValues(path, r.Method, status).Inc()
		httpRequestDuration.WithLabelValues(path, r.Method, status).Observe(time.Since(start).Seconds())
		if !rec.firstByte.IsZero() {
			httpFirstByte.WithLabelValues(path).Observe(rec.firstByte.Sub(start).Seconds())
		}
		httpResponseBytes.WithLabelValues(path).Add(float64(rec.bytes))
	})
}

// routeLabel prefers the matched chi pattern so ids in the URL do not
// create new series. Unmatched requests share one label.
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// IncrementBackpressure counts a 429 answer.
func IncrementBackpressure(reason string) {
	if reason == "" {
		reason = "unspecified"
	}
	backpressureTotal.WithLabelValues(reason).Inc()
}
