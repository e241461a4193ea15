package services

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/temcen/sage/internal/engine"
	"github.com/temcen/sage/pkg/models"
)

// EvaluationService validates evaluation parameters and runs the offline
// evaluator on the active snapshot.
type EvaluationService struct {
	holder    *engine.Holder
	metrics   *MetricsCollector
	validator *validator.Validate
	logger    *logrus.Logger
}

func NewEvaluationService(holder *engine.Holder, metrics *MetricsCollector, logger *logrus.Logger) *EvaluationService {
	return &EvaluationService{
		holder:    holder,
		metrics:   metrics,
		validator: validator.New(),
		logger:    logger,
	}
}

// ParsePositiveActions splits a comma separated action list, dropping blanks.
func ParsePositiveActions(raw string) []string {
	actions := []string{}
	for _, a := range strings.Split(raw, ",") {
		if a = strings.TrimSpace(a); a != "" {
			actions = append(actions, a)
		}
	}
	return actions
}

// Validate enforces k in [1,50], test_fraction in (0,0.9) and
// min_interactions >= 2.
func (s *EvaluationService) Validate(params models.EvaluationParams) error {
	if err := s.validator.Struct(params); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fieldMessage(fe))
			}
			return invalidParameter("%s", strings.Join(fields, "; "))
		}
		return invalidParameter("%v", err)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "K":
		return "k must be between 1 and 50"
	case "TestFraction":
		return "test_fraction must be between 0 and 0.9"
	case "MinInteractions":
		return "min_interactions must be >= 2"
	default:
		return fe.Error()
	}
}

func (s *EvaluationService) Evaluate(ctx context.Context, params models.EvaluationParams) (*models.EvaluateResponse, error) {
	if err := s.Validate(params); err != nil {
		return nil, err
	}
	if len(params.PositiveActions) == 0 {
		params.PositiveActions = append([]string(nil), models.DefaultPositiveActions...)
	}

	snap := s.holder.Load()
	start := time.Now()
	metrics := snap.Evaluate(params)
	s.metrics.RecordEvaluation(metrics)

	s.logger.WithFields(logrus.Fields{
		"snapshot_version": snap.Version(),
		"k":                params.K,
		"test_fraction":    params.TestFraction,
		"min_interactions": params.MinInteractions,
		"users_evaluated":  metrics.UsersEvaluated,
		"precision_at_k":   metrics.PrecisionAtK,
		"ndcg_at_k":        metrics.NDCGAtK,
		"took":             time.Since(start),
	}).Info("Offline evaluation completed")

	return &models.EvaluateResponse{
		EvaluationParams:  params,
		EvaluationMetrics: metrics,
		SnapshotVersion:   snap.Version(),
	}, nil
}
