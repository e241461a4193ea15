package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/sage/pkg/models"
)

// MetricsCollector owns the engine's Prometheus series.
type MetricsCollector struct {
	recommendationRequests *prometheus.CounterVec
	recommendationLatency  *prometheus.HistogramVec
	recommendationResults  *prometheus.HistogramVec
	cacheLookups           *prometheus.CounterVec
	snapshotRebuilds       *prometheus.CounterVec
	snapshotBuildSeconds   prometheus.Histogram
	snapshotSize           *prometheus.GaugeVec
	evaluationRuns         prometheus.Counter
	evaluationMetrics      *prometheus.GaugeVec
}

// NewMetricsCollector creates and registers the collectors on registerer.
// Collectors that are already registered are reused.
func NewMetricsCollector(registerer prometheus.Registerer, logger *logrus.Logger) *MetricsCollector {
	mc := &MetricsCollector{
		recommendationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sage_recommendation_requests_total",
			Help: "Total number of recommendation requests",
		}, []string{"method", "status"}),

		recommendationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sage_recommendation_latency_seconds",
			Help:    "Recommendation request latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"method"}),

		recommendationResults: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sage_recommendation_result_size",
			Help:    "Number of items returned per recommendation request",
			Buckets: []float64{0, 1, 3, 5, 10, 20, 50},
		}, []string{"method"}),

		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sage_result_cache_lookups_total",
			Help: "Result cache lookups by outcome",
		}, []string{"outcome"}),

		snapshotRebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sage_snapshot_rebuilds_total",
			Help: "Snapshot rebuilds by source and status",
		}, []string{"source", "status"}),

		snapshotBuildSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sage_snapshot_build_seconds",
			Help:    "Time to build a snapshot",
			Buckets: prometheus.DefBuckets,
		}),

		snapshotSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sage_snapshot_size",
			Help: "Size of the active snapshot",
		}, []string{"dimension"}),

		evaluationRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sage_evaluation_runs_total",
			Help: "Offline evaluation runs",
		}),

		evaluationMetrics: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sage_evaluation_metric",
			Help: "Latest offline evaluation metrics",
		}, []string{"metric"}),
	}

	if registerer == nil {
		return mc
	}

	mc.recommendationRequests = register(registerer, logger, mc.recommendationRequests)
	mc.recommendationLatency = register(registerer, logger, mc.recommendationLatency)
	mc.recommendationResults = register(registerer, logger, mc.recommendationResults)
	mc.cacheLookups = register(registerer, logger, mc.cacheLookups)
	mc.snapshotRebuilds = register(registerer, logger, mc.snapshotRebuilds)
	mc.snapshotBuildSeconds = register(registerer, logger, mc.snapshotBuildSeconds)
	mc.snapshotSize = register(registerer, logger, mc.snapshotSize)
	mc.evaluationRuns = register(registerer, logger, mc.evaluationRuns)
	mc.evaluationMetrics = register(registerer, logger, mc.evaluationMetrics)

	return mc
}

func register[T prometheus.Collector](registerer prometheus.Registerer, logger *logrus.Logger, c T) T {
	if err := registerer.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		logger.WithError(err).Warn("Failed to register metric")
	}
	return c
}

func (mc *MetricsCollector) RecordRecommendation(method, status string, size int, latency time.Duration) {
	mc.recommendationRequests.WithLabelValues(method, status).Inc()
	mc.recommendationLatency.WithLabelValues(method).Observe(latency.Seconds())
	if status == "ok" {
		mc.recommendationResults.WithLabelValues(method).Observe(float64(size))
	}
}

func (mc *MetricsCollector) RecordCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	mc.cacheLookups.WithLabelValues(outcome).Inc()
}

func (mc *MetricsCollector) RecordRebuild(source, status string, took time.Duration) {
	mc.snapshotRebuilds.WithLabelValues(source, status).Inc()
	if status == "ok" {
		mc.snapshotBuildSeconds.Observe(took.Seconds())
	}
}

func (mc *MetricsCollector) SetSnapshotSize(products, users, interactions int) {
	mc.snapshotSize.WithLabelValues("products").Set(float64(products))
	mc.snapshotSize.WithLabelValues("users").Set(float64(users))
	mc.snapshotSize.WithLabelValues("interactions").Set(float64(interactions))
}

func (mc *MetricsCollector) RecordEvaluation(m models.EvaluationMetrics) {
	mc.evaluationRuns.Inc()
	mc.evaluationMetrics.WithLabelValues("users_evaluated").Set(float64(m.UsersEvaluated))
	mc.evaluationMetrics.WithLabelValues("precision_at_k").Set(m.PrecisionAtK)
	mc.evaluationMetrics.WithLabelValues("recall_at_k").Set(m.RecallAtK)
	mc.evaluationMetrics.WithLabelValues("ndcg_at_k").Set(m.NDCGAtK)
	mc.evaluationMetrics.WithLabelValues("hit_rate_at_k").Set(m.HitRateAtK)
	mc.evaluationMetrics.WithLabelValues("coverage_at_k").Set(m.CoverageAtK)
}
