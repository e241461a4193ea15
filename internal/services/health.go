package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/sage/internal/engine"
)

// DependencyPinger checks optional external stores. A nil pinger means no
// external dependency is configured.
type DependencyPinger interface {
	Ping(ctx context.Context) map[string]error
}

type HealthService struct {
	holder *engine.Holder
	deps   DependencyPinger
	logger *logrus.Logger

	healthCheckStatus *prometheus.GaugeVec
}

type HealthStatus struct {
	Status          string            `json:"status"`
	Timestamp       time.Time         `json:"timestamp"`
	ProductsLoaded  int               `json:"products_loaded"`
	UsersTracked    int               `json:"users_tracked"`
	SnapshotVersion string            `json:"snapshot_version"`
	SnapshotBuiltAt time.Time         `json:"snapshot_built_at"`
	Services        map[string]string `json:"services,omitempty"`
	NonCritical     []string          `json:"non_critical_failures,omitempty"`
}

func NewHealthService(holder *engine.Holder, deps DependencyPinger, registerer prometheus.Registerer, logger *logrus.Logger) *HealthService {
	hs := &HealthService{
		holder: holder,
		deps:   deps,
		logger: logger,
		healthCheckStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sage_health_check_status",
			Help: "Health check status (1 = healthy, 0 = unhealthy)",
		}, []string{"service"}),
	}

	if registerer != nil {
		hs.healthCheckStatus = register(registerer, logger, hs.healthCheckStatus)
	}

	return hs
}

// CheckHealth reports the serving snapshot. The engine itself is always
// healthy once a snapshot is installed; unreachable stores only degrade it.
func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	snap := s.holder.Load()
	status := &HealthStatus{
		Status:          "healthy",
		Timestamp:       time.Now(),
		ProductsLoaded:  snap.Catalog().Len(),
		UsersTracked:    snap.Ledger().UserCount(),
		SnapshotVersion: snap.Version(),
		SnapshotBuiltAt: snap.BuiltAt(),
		Services:        map[string]string{"engine": "healthy"},
	}
	s.updateHealthMetrics("engine", true)

	if s.deps == nil {
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for name, err := range s.deps.Ping(ctx) {
		if err != nil {
			status.Services[name] = "unhealthy"
			status.NonCritical = append(status.NonCritical, name)
			s.logger.WithError(err).Warnf("Non-critical service %s is unhealthy", name)
			s.updateHealthMetrics(name, false)
			continue
		}
		status.Services[name] = "healthy"
		s.updateHealthMetrics(name, true)
	}

	if len(status.NonCritical) > 0 {
		status.Status = "degraded"
	}
	return status
}

func (s *HealthService) updateHealthMetrics(serviceName string, healthy bool) {
	if healthy {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(1)
	} else {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(0)
	}
}
