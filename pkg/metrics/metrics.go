package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/amoylab/rowgate/internal/common/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry   *prometheus.Registry
	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec
	httpInfl   *prometheus.GaugeVec
	queryCnt   *prometheus.CounterVec
	queryDur   *prometheus.HistogramVec
	rowsCnt    *prometheus.CounterVec
	adminCnt   *prometheus.CounterVec
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: cfg.Buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	// outcome is ok, denied or error
	queryCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "gateway_queries_total"}, []string{"action", "outcome"})
	queryDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "gateway_query_duration_seconds", Buckets: cfg.Buckets}, []string{"action"})
	rowsCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "gateway_rows_total"}, []string{"action", "kind"})
	r.MustRegister(queryCnt, queryDur, rowsCnt)

	adminCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "admin_operations_total"}, []string{"action", "outcome"})
	r.MustRegister(adminCnt)

	return &Metrics{
		registry:   r,
		httpReqCnt: httpReqCnt,
		httpDur:    httpDur,
		httpInfl:   httpInfl,
		queryCnt:   queryCnt,
		queryDur:   queryDur,
		rowsCnt:    rowsCnt,
		adminCnt:   adminCnt,
	}
}

// QueryDone records one gateway request. A nil receiver is a no-op so
// callers do not need to check whether metrics are enabled.
func (m *Metrics) QueryDone(action, outcome string, since time.Time, affected, returned int64) {
	if m == nil {
		return
	}
	m.queryCnt.WithLabelValues(action, outcome).Inc()
	m.queryDur.WithLabelValues(action).Observe(time.Since(since).Seconds())
	if affected > 0 {
		m.rowsCnt.WithLabelValues(action, "affected").Add(float64(affected))
	}
	if returned > 0 {
		m.rowsCnt.WithLabelValues(action, "returned").Add(float64(returned))
	}
}

func (m *Metrics) AdminDone(action, outcome string) {
	if m == nil {
		return
	}
	m.adminCnt.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
