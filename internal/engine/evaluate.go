package engine

import (
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/temcen/sage/pkg/models"
)

type userOutcome struct {
	evaluated   bool
	precision   float64
	recall      float64
	ndcg        float64
	hit         float64
	recommended []models.ScoredItem
}

// Evaluate runs a per-user time-based holdout: the latest TestFraction of each
// eligible user's history is held out, the user is re-scored from the rest
// and the held-out positive actions are the relevance set. Users are scored
// on a bounded worker group and aggregated in ledger order, so the result is
// the same for any worker count. No eligible user is not an error; every
// metric is then zero.
func (s *Snapshot) Evaluate(params models.EvaluationParams) models.EvaluationMetrics {
	positives := params.PositiveActions
	if len(positives) == 0 {
		positives = models.DefaultPositiveActions
	}
	positiveSet := make(map[string]bool, len(positives))
	for _, a := range positives {
		positiveSet[a] = true
	}

	users := s.ledger.Users()
	outcomes := make([]userOutcome, len(users))

	var g errgroup.Group
	g.SetLimit(s.options.EvaluationWorkers)
	for i, userID := range users {
		g.Go(func() error {
			outcomes[i] = s.evaluateUser(userID, params, positiveSet)
			return nil
		})
	}
	_ = g.Wait()

	var metrics models.EvaluationMetrics
	covered := make(map[string]bool)
	for _, o := range outcomes {
		if !o.evaluated {
			continue
		}
		metrics.UsersEvaluated++
		metrics.PrecisionAtK += o.precision
		metrics.RecallAtK += o.recall
		metrics.NDCGAtK += o.ndcg
		metrics.HitRateAtK += o.hit
		for _, r := range o.recommended {
			covered[r.ItemID] = true
		}
	}

	if metrics.UsersEvaluated == 0 {
		return models.EvaluationMetrics{}
	}

	n := float64(metrics.UsersEvaluated)
	metrics.PrecisionAtK /= n
	metrics.RecallAtK /= n
	metrics.NDCGAtK /= n
	metrics.HitRateAtK /= n
	if s.catalog.Len() > 0 {
		metrics.CoverageAtK = float64(len(covered)) / float64(s.catalog.Len())
	}
	return metrics
}

func (s *Snapshot) evaluateUser(userID string, params models.EvaluationParams, positives map[string]bool) userOutcome {
	var history []models.Interaction
	for _, it := range s.ledger.Interactions(userID) {
		if s.catalog.Contains(it.ItemID) {
			history = append(history, it)
		}
	}
	if len(history) < params.MinInteractions || len(history) == 0 {
		return userOutcome{}
	}

	// Untimed interactions have an empty timestamp and sort first.
	sort.SliceStable(history, func(a, b int) bool {
		return history[a].Timestamp < history[b].Timestamp
	})

	n := len(history)
	testSize := int(math.Ceil(float64(n) * params.TestFraction))
	if testSize < 1 {
		testSize = 1
	}
	if testSize > n {
		testSize = n
	}
	train := history[:n-testSize]
	test := history[n-testSize:]

	relevant := make(map[string]bool)
	for _, it := range test {
		if positives[it.Action] {
			relevant[it.ItemID] = true
		}
	}
	if len(relevant) == 0 {
		return userOutcome{}
	}

	recs := s.restrict(train).RecommendUser(userID, params.K, true)
	if len(recs) == 0 {
		return userOutcome{}
	}

	hits := 0
	hitSet := make(map[string]bool)
	var dcg float64
	for rank, r := range recs {
		if !relevant[r.ItemID] {
			continue
		}
		dcg += 1 / math.Log2(float64(rank+2))
		if !hitSet[r.ItemID] {
			hitSet[r.ItemID] = true
			hits++
		}
	}

	idealHits := len(relevant)
	if params.K < idealHits {
		idealHits = params.K
	}
	var ideal float64
	for rank := 1; rank <= idealHits; rank++ {
		ideal += 1 / math.Log2(float64(rank+1))
	}

	outcome := userOutcome{
		evaluated:   true,
		precision:   float64(hits) / float64(params.K),
		recall:      float64(hits) / float64(len(relevant)),
		recommended: recs,
	}
	if hits > 0 {
		outcome.hit = 1
	}
	if ideal > 0 {
		outcome.ndcg = dcg / ideal
	}
	return outcome
}
