// Package metrics expone contadores Prometheus de las decisiones del
// flujo de autorización y del endpoint de tokens.
package metrics

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
	metricsOnce sync.Once
	metricsErr  error

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	authorizeDecisionsTotal *prometheus.CounterVec
	consentSubmissionsTotal *prometheus.CounterVec
	tokenExchangesTotal     *prometheus.CounterVec
)

// Register inicializa las métricas en el registry indicado (nil usa el
// default) y devuelve el handler para /metrics.
func Register(registry prometheus.Registerer) (http.Handler, error) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		authorizeDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authorize_decisions_total",
			Help: "Decisiones del endpoint de autorización por resultado",
		}, []string{"outcome"}) // success|consent_form|login_required|consent_required|error

		consentSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consent_submissions_total",
			Help: "Envíos del formulario de consentimiento por resultado",
		}, []string{"result"}) // accepted|denied|rejected

		tokenExchangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "token_exchanges_total",
			Help: "Intercambios en el endpoint de tokens por grant y resultado",
		}, []string{"grant_type", "outcome"}) // outcome: issued|invalid_grant|error

		for _, c := range []prometheus.Collector{
			httpRequestsTotal,
			httpRequestDuration,
			authorizeDecisionsTotal,
			consentSubmissionsTotal,
			tokenExchangesTotal,
		} {
			if err := registerCollector(registry, c); err != nil {
				metricsErr = err
				return
			}
		}
	})
	if metricsErr != nil {
		return nil, metricsErr
	}

	return promhttp.Handler(), nil
}

// registerCollector registra el collector ignorando duplicados.
func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// WithMetrics instrumenta requests HTTP (contadores y latencia).
func WithMetrics(next http.Handler) http.Handler {
	if next == nil {
		return nil
	}
	if httpRequestsTotal == nil || httpRequestDuration == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.ToUpper(r.Method)
		path := r.URL.Path
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		}()

		next.ServeHTTP(rec, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RecordAuthorizeDecision registra el resultado del endpoint de autorización.
func RecordAuthorizeDecision(outcome string) {
	if authorizeDecisionsTotal != nil {
		authorizeDecisionsTotal.WithLabelValues(outcome).Inc()
	}
}

// RecordConsentSubmission registra el resultado de un envío de consentimiento.
func RecordConsentSubmission(result string) {
	if consentSubmissionsTotal != nil {
		consentSubmissionsTotal.WithLabelValues(result).Inc()
	}
}

// RecordTokenExchange registra el resultado de un intercambio de tokens.
func RecordTokenExchange(grantType, outcome string) {
	if tokenExchangesTotal != nil {
		tokenExchangesTotal.WithLabelValues(grantType, outcome).Inc()
	}
}
