package observability

import (
	"database/sql"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type key struct {
	Method string
	Path   string
	Status int
}

type stat struct {
	Count     int64
	LatencyMS float64
}

type gauge struct {
	name string
	fn   func() float64
}

type Collector struct {
	db  *sql.DB
	log *zap.Logger

	mu           sync.RWMutex
	requestStats map[key]stat
	gauges       []gauge
	startedAt    time.Time
}

func NewCollector(db *sql.DB, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{
		db:           db,
		log:          log,
		requestStats: make(map[key]stat),
		startedAt:    time.Now(),
	}
}

// AddGauge registers a value sampled on every scrape, exported as
// quizrunner_<name>.
func (c *Collector) AddGauge(name string, fn func() float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges = append(c.gauges, gauge{name: name, fn: fn})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		latencyMS := float64(time.Since(start).Microseconds()) / 1000.0
		path := normalizedPath(r.URL.Path)

		c.mu.Lock()
		k := key{Method: r.Method, Path: path, Status: rec.status}
		s := c.requestStats[k]
		s.Count++
		s.LatencyMS += latencyMS
		c.requestStats[k] = s
		c.mu.Unlock()

		c.log.Info("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("session_id", extractSessionID(r)),
			zap.String("method", r.Method),
			zap.String("path", path),
			zap.Int("status", rec.status),
			zap.Float64("latency_ms", latencyMS),
			zap.String("remote_ip", strings.TrimSpace(r.RemoteAddr)),
		)
	})
}

func (c *Collector) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	statsCopy := make(map[key]stat, len(c.requestStats))
	for k, v := range c.requestStats {
		statsCopy[k] = v
	}
	gauges := append([]gauge(nil), c.gauges...)
	startedAt := c.startedAt
	c.mu.RUnlock()

	keys := make([]key, 0, len(statsCopy))
	for k := range statsCopy {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Method != keys[j].Method {
			return keys[i].Method < keys[j].Method
		}
		if keys[i].Path != keys[j].Path {
			return keys[i].Path < keys[j].Path
		}
		return keys[i].Status < keys[j].Status
	})

	var sb strings.Builder
	sb.WriteString("# quizrunner observability metrics\n")
	sb.WriteString("# TYPE quizrunner_uptime_seconds gauge\n")
	sb.WriteString(fmt.Sprintf("quizrunner_uptime_seconds %.0f\n", time.Since(startedAt).Seconds()))

	sb.WriteString("# TYPE quizrunner_http_requests_total counter\n")
	sb.WriteString("# TYPE quizrunner_http_request_latency_ms_sum counter\n")
	sb.WriteString("# TYPE quizrunner_http_request_latency_ms_avg gauge\n")
	for _, k := range keys {
		s := statsCopy[k]
		labels := fmt.Sprintf("method=\"%s\",path=\"%s\",status=\"%d\"", k.Method, k.Path, k.Status)
		sb.WriteString(fmt.Sprintf("quizrunner_http_requests_total{%s} %d\n", labels, s.Count))
		sb.WriteString(fmt.Sprintf("quizrunner_http_request_latency_ms_sum{%s} %.3f\n", labels, s.LatencyMS))
		avg := 0.0
		if s.Count > 0 {
			avg = s.LatencyMS / float64(s.Count)
		}
		sb.WriteString(fmt.Sprintf("quizrunner_http_request_latency_ms_avg{%s} %.3f\n", labels, avg))
	}

	for _, g := range gauges {
		sb.WriteString(fmt.Sprintf("# TYPE quizrunner_%s gauge\n", g.name))
		sb.WriteString(fmt.Sprintf("quizrunner_%s %g\n", g.name, g.fn()))
	}

	if c.db != nil {
		dbs := c.db.Stats()
		sb.WriteString("# TYPE quizrunner_db_open_connections gauge\n")
		sb.WriteString(fmt.Sprintf("quizrunner_db_open_connections %d\n", dbs.OpenConnections))
		sb.WriteString("# TYPE quizrunner_db_in_use_connections gauge\n")
		sb.WriteString(fmt.Sprintf("quizrunner_db_in_use_connections %d\n", dbs.InUse))
		sb.WriteString("# TYPE quizrunner_db_idle_connections gauge\n")
		sb.WriteString(fmt.Sprintf("quizrunner_db_idle_connections %d\n", dbs.Idle))
		sb.WriteString("# TYPE quizrunner_db_wait_count counter\n")
		sb.WriteString(fmt.Sprintf("quizrunner_db_wait_count %d\n", dbs.WaitCount))
		sb.WriteString("# TYPE quizrunner_db_wait_duration_ms counter\n")
		sb.WriteString(fmt.Sprintf("quizrunner_db_wait_duration_ms %.3f\n", float64(dbs.WaitDuration.Microseconds())/1000.0))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sb.String()))
}

// normalizedPath folds numeric and uuid segments so per-session URLs share a
// metrics series.
func normalizedPath(path string) string {
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = "{id}"
			continue
		}
		if _, err := uuid.Parse(p); err == nil {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

// extractSessionID finds the session from the API path or, for page
// requests, the session cookie.
func extractSessionID(r *http.Request) string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "sessions" {
			if _, err := uuid.Parse(parts[i+1]); err == nil {
				return parts[i+1]
			}
		}
	}
	if c, err := r.Cookie("quizrunner_session"); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	return ""
}
