package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	authVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fbms_auth_verifications_total",
			Help: "Token verifications on protected routes by outcome.",
		},
		[]string{"result"},
	)

	inventoryAssignments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fbms_inventory_assignments_total",
			Help: "Inventory assignment attempts by outcome.",
		},
		[]string{"result"},
	)

	inventoryAssignedUnits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fbms_inventory_assigned_units_total",
		Help: "Inventory units moved onto projects.",
	})

	serviceReady = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fbms_ready",
		Help: "1 when the service passes its readiness probe.",
	})
)

// Init registers the metrics in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight,
			httpRequestsTotal,
			httpRequestDuration,
			authVerifications,
			inventoryAssignments,
			inventoryAssignedUnits,
			serviceReady,
		)
	})
}

// Handler exposes the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAuth counts a token verification outcome ("ok", "missing", "expired", ...).
func ObserveAuth(result string) {
	authVerifications.WithLabelValues(result).Inc()
}

// ObserveAssignment counts an inventory assignment outcome and, on success, the units moved.
func ObserveAssignment(result string, units int64) {
	inventoryAssignments.WithLabelValues(result).Inc()
	if result == "ok" && units > 0 {
		inventoryAssignedUnits.Add(float64(units))
	}
}

// SetReady flips the readiness gauge.
func SetReady(ready bool) {
	if ready {
		serviceReady.Set(1)
		return
	}
	serviceReady.Set(0)
}

// Instrument records request rate, latency and in-flight requests.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

// routeShapes lists the parameterised routes; ":id" matches any single segment.
var routeShapes = [][]string{
	{"employees", "remove", ":id"},
	{"inventory", "assign", ":id"},
	{"inventory", ":id"},
	{"projects", "status", ":id"},
	{"projects", ":id"},
	{"projectbreakdown", ":id"},
	{"costbreakdown", ":id"},
}

// staticSegments are second segments that must never collapse into ":id".
var staticSegments = map[string]bool{
	"events":      true,
	"suggestions": true,
}

// CanonicalPath collapses identifiers so metric label cardinality stays bounded.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" || p == "/" {
		return "/"
	}
	segs := strings.Split(strings.Trim(p, "/"), "/")
	for _, shape := range routeShapes {
		if len(shape) != len(segs) {
			continue
		}
		match := true
		for i, part := range shape {
			if part == ":id" {
				if staticSegments[segs[i]] {
					match = false
					break
				}
				continue
			}
			if part != segs[i] {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		out := make([]string, len(shape))
		copy(out, shape)
		return "/" + strings.Join(out, "/")
	}
	return p
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Flush keeps Server-Sent Events working through the instrumentation wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
