package engine

// CoOccurrence maps an item to the users who interacted with it, in ledger
// order.
type CoOccurrence struct {
	usersByItem map[string][]string
}

// NewCoOccurrence derives the index from a ledger.
func NewCoOccurrence(l *Ledger) *CoOccurrence {
	c := &CoOccurrence{usersByItem: make(map[string][]string)}
	for _, u := range l.users {
		for _, itemID := range l.strength[u].order {
			c.usersByItem[itemID] = append(c.usersByItem[itemID], u)
		}
	}
	return c
}

// Related accumulates, over every user who touched itemID, the strength they
// placed on each other item. Candidates are returned in first-encountered
// order alongside their scores.
func (c *CoOccurrence) Related(l *Ledger, itemID string) ([]string, map[string]float64) {
	users := c.usersByItem[itemID]
	if len(users) == 0 {
		return nil, nil
	}

	var order []string
	scores := make(map[string]float64)
	for _, u := range users {
		s := l.strength[u]
		for _, other := range s.order {
			if other == itemID {
				continue
			}
			if _, seen := scores[other]; !seen {
				order = append(order, other)
			}
			scores[other] += s.weight[other]
		}
	}
	return order, scores
}
