// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what handlers and services report into.
type Recorder interface {
	RecordRequest(method, route string, status int, duration time.Duration)
	RecordLogin(method string, ok bool)
	RecordMessageSent()
	RecordSubscribers(delta int)
}

// Collector is the Prometheus Recorder.
type Collector struct {
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	logins       *prometheus.CounterVec
	messagesSent prometheus.Counter
	subscribers  prometheus.Gauge
}

// NewCollector registers the metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillswap_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "skillswap_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillswap_logins_total",
			Help: "Login attempts by method and outcome.",
		}, []string{"method", "outcome"}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillswap_chat_messages_sent_total",
			Help: "Chat messages appended.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skillswap_chat_subscribers",
			Help: "Open websocket chat subscriptions on this instance.",
		}),
	}
	reg.MustRegister(c.requests, c.latency, c.logins, c.messagesSent, c.subscribers)
	return c
}

func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordLogin(method string, ok bool) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	c.logins.WithLabelValues(method, outcome).Inc()
}

func (c *Collector) RecordMessageSent() {
	c.messagesSent.Inc()
}

func (c *Collector) RecordSubscribers(delta int) {
	c.subscribers.Add(float64(delta))
}

// Handler serves the Prometheus scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRequest(string, string, int, time.Duration) {}
func (Nop) RecordLogin(string, bool)                         {}
func (Nop) RecordMessageSent()                               {}
func (Nop) RecordSubscribers(int)                            {}
