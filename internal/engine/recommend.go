package engine

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/temcen/sage/pkg/models"
)

const (
	// profileEpsilon keeps the profile denominator non-zero.
	profileEpsilon = 1e-9
	// seenSentinel is below any cosine similarity so seen items are never picked.
	seenSentinel = -1.0
)

// RecommendItemContent ranks catalog items by boosted cosine similarity to
// itemID. The query item is never part of the result.
func (s *Snapshot) RecommendItemContent(itemID string, topN int) ([]models.ScoredItem, error) {
	query, err := s.catalog.Get(itemID)
	if err != nil {
		return nil, err
	}
	results := []models.ScoredItem{}
	if !s.text.Fitted() || topN <= 0 {
		return results, nil
	}

	pos, _ := s.catalog.Position(itemID)
	row, _ := s.text.Row(pos)
	sims := s.text.SimilarityToAll(row)

	for j := range sims {
		candidate := s.catalog.At(j)
		if query.Category != "" && candidate.Category == query.Category {
			sims[j] *= s.options.CategoryBoost
		}
		if query.Brand != "" && candidate.Brand == query.Brand {
			sims[j] *= s.options.BrandBoost
		}
	}

	for _, j := range rankIndices(sims) {
		if j == pos {
			continue
		}
		results = append(results, models.ScoredItem{ItemID: s.catalog.At(j).ID, Score: sims[j]})
		if len(results) >= topN {
			break
		}
	}
	return results, nil
}

// RecommendItemCollaborative ranks items co-interacted with itemID. Scores are
// divided by the top score, so a non-empty result starts at 1.0. An item
// nobody interacted with yields an empty result rather than an error.
func (s *Snapshot) RecommendItemCollaborative(itemID string, topN int) []models.ScoredItem {
	results := []models.ScoredItem{}
	if topN <= 0 {
		return results
	}

	order, scores := s.cooc.Related(s.ledger, itemID)
	if len(order) == 0 {
		return results
	}

	ranked := rankKeys(order, scores)
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	var top float64
	for _, id := range ranked {
		if scores[id] > top {
			top = scores[id]
		}
	}
	if top <= 0 {
		return results
	}

	for _, id := range ranked {
		results = append(results, models.ScoredItem{ItemID: id, Score: scores[id] / top})
	}
	return results
}

// RecommendItemHybrid blends 2*topN content and collaborative candidates with
// the configured weights. Unknown items fail with ErrNotFound.
func (s *Snapshot) RecommendItemHybrid(itemID string, topN int) ([]models.ScoredItem, error) {
	content, err := s.RecommendItemContent(itemID, topN*2)
	if err != nil {
		return nil, err
	}
	collaborative := s.RecommendItemCollaborative(itemID, topN*2)

	var order []string
	combined := make(map[string]float64, len(content)+len(collaborative))
	add := func(items []models.ScoredItem, weight float64) {
		for _, it := range items {
			if _, ok := combined[it.ItemID]; !ok {
				order = append(order, it.ItemID)
			}
			combined[it.ItemID] += it.Score * weight
		}
	}
	add(content, s.options.ContentWeight)
	add(collaborative, s.options.CollaborativeWeight)

	results := []models.ScoredItem{}
	for _, id := range rankKeys(order, combined) {
		if len(results) >= topN {
			break
		}
		results = append(results, models.ScoredItem{ItemID: id, Score: combined[id]})
	}
	return results, nil
}

// RecommendUser ranks items by cosine similarity to the user's weighted
// average item vector. No more than CategoryCap items share a non-empty
// category. Unknown users get an empty result.
func (s *Snapshot) RecommendUser(userID string, topN int, excludeSeen bool) []models.ScoredItem {
	results := []models.ScoredItem{}
	if !s.text.Fitted() || topN <= 0 {
		return results
	}

	interactions := s.ledger.Interactions(userID)
	if len(interactions) == 0 {
		return results
	}

	profile := make([]float64, s.text.Dim())
	seen := make(map[int]bool)
	var weightSum float64
	for _, it := range interactions {
		pos, ok := s.catalog.Position(it.ItemID)
		if !ok {
			continue
		}
		w := models.ActionWeight(it.Action)
		row, _ := s.text.Row(pos)
		row.AddScaledTo(profile, w)
		weightSum += w
		seen[pos] = true
	}
	if len(seen) == 0 {
		return results
	}
	floats.Scale(1/(weightSum+profileEpsilon), profile)

	sims := s.text.SimilarityToAllDense(profile)
	if excludeSeen {
		for pos := range seen {
			sims[pos] = seenSentinel
		}
	}

	perCategory := make(map[string]int)
	for _, j := range rankIndices(sims) {
		if excludeSeen && seen[j] {
			continue
		}
		item := s.catalog.At(j)
		key := diversityKey(item)
		if key != "" && perCategory[key] >= s.options.CategoryCap {
			continue
		}
		perCategory[key]++
		results = append(results, models.ScoredItem{ItemID: item.ID, Score: sims[j]})
		if len(results) >= topN {
			break
		}
	}
	return results
}

// rankIndices orders positions by descending score; equal scores keep
// catalog order.
func rankIndices(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	return idx
}

// rankKeys orders keys by descending score; equal scores keep the given order.
func rankKeys(order []string, scores map[string]float64) []string {
	ranked := append([]string(nil), order...)
	sort.SliceStable(ranked, func(a, b int) bool {
		return scores[ranked[a]] > scores[ranked[b]]
	})
	return ranked
}
