package engine

import "github.com/temcen/sage/pkg/models"

// Ledger groups interactions per user. Users keep first-seen order and each
// user's interactions keep input order.
type Ledger struct {
	users        []string
	interactions map[string][]models.Interaction
	strength     map[string]*itemStrength
	total        int
}

// itemStrength is one user's accumulated weight per item, with items in the
// order they were first touched.
type itemStrength struct {
	order  []string
	weight map[string]float64
}

func (s *itemStrength) add(itemID string, w float64) {
	if _, ok := s.weight[itemID]; !ok {
		s.order = append(s.order, itemID)
	}
	s.weight[itemID] += w
}

// NewLedger builds a ledger and its user-item strength table.
func NewLedger(interactions []models.Interaction) *Ledger {
	l := &Ledger{
		interactions: make(map[string][]models.Interaction),
		strength:     make(map[string]*itemStrength),
	}
	for _, it := range interactions {
		l.append(it)
	}
	return l
}

func (l *Ledger) append(it models.Interaction) {
	if _, ok := l.interactions[it.UserID]; !ok {
		l.users = append(l.users, it.UserID)
		l.strength[it.UserID] = &itemStrength{weight: make(map[string]float64)}
	}
	l.interactions[it.UserID] = append(l.interactions[it.UserID], it)
	l.strength[it.UserID].add(it.ItemID, models.ActionWeight(it.Action))
	l.total++
}

// Users returns user ids in first-seen order.
func (l *Ledger) Users() []string {
	return l.users
}

// UserCount returns the number of distinct users.
func (l *Ledger) UserCount() int {
	return len(l.users)
}

// Interactions returns the user's interactions in input order.
func (l *Ledger) Interactions(userID string) []models.Interaction {
	return l.interactions[userID]
}

// Strength returns the accumulated weight the user placed on an item.
func (l *Ledger) Strength(userID, itemID string) float64 {
	s, ok := l.strength[userID]
	if !ok {
		return 0
	}
	return s.weight[itemID]
}

// All returns every interaction, grouped by user in first-seen order.
func (l *Ledger) All() []models.Interaction {
	out := make([]models.Interaction, 0, l.total)
	for _, u := range l.users {
		out = append(out, l.interactions[u]...)
	}
	return out
}
