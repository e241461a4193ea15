package engine

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/temcen/sage/internal/ml"
	"github.com/temcen/sage/pkg/models"
)

// Options holds the scoring constants of a snapshot.
type Options struct {
	CategoryBoost       float64
	BrandBoost          float64
	ContentWeight       float64
	CollaborativeWeight float64
	CategoryCap         int
	Vectorizer          ml.VectorizerConfig
	EvaluationWorkers   int
}

// DefaultOptions returns the production scoring constants.
func DefaultOptions() Options {
	return Options{
		CategoryBoost:       1.15,
		BrandBoost:          1.08,
		ContentWeight:       0.7,
		CollaborativeWeight: 0.3,
		CategoryCap:         3,
		Vectorizer: ml.VectorizerConfig{
			MaxFeatures: ml.DefaultMaxFeatures,
			MaxNGram:    2,
		},
		EvaluationWorkers: 4,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CategoryBoost <= 0 {
		o.CategoryBoost = d.CategoryBoost
	}
	if o.BrandBoost <= 0 {
		o.BrandBoost = d.BrandBoost
	}
	if o.ContentWeight <= 0 && o.CollaborativeWeight <= 0 {
		o.ContentWeight = d.ContentWeight
		o.CollaborativeWeight = d.CollaborativeWeight
	}
	if o.CategoryCap <= 0 {
		o.CategoryCap = d.CategoryCap
	}
	if o.Vectorizer.MaxFeatures <= 0 {
		o.Vectorizer.MaxFeatures = d.Vectorizer.MaxFeatures
	}
	if o.Vectorizer.MaxNGram <= 0 {
		o.Vectorizer.MaxNGram = d.Vectorizer.MaxNGram
	}
	if o.EvaluationWorkers <= 0 {
		o.EvaluationWorkers = 1
	}
	return o
}

// Snapshot is one immutable build of the engine over a fixed catalog and
// interaction set. All methods are safe for concurrent use.
type Snapshot struct {
	version string
	builtAt time.Time
	options Options

	catalog *Catalog
	text    *ml.TextModel
	ledger  *Ledger
	cooc    *CoOccurrence
}

// Build fits the text model over items and indexes interactions.
func Build(items []models.Item, interactions []models.Interaction, opts Options) (*Snapshot, error) {
	opts = opts.withDefaults()

	catalog, err := NewCatalog(items)
	if err != nil {
		return nil, err
	}

	docs := make([]string, catalog.Len())
	for i := range docs {
		docs[i] = ml.ItemDocument(catalog.At(i))
	}

	s := &Snapshot{
		version: uuid.NewString(),
		builtAt: time.Now().UTC(),
		options: opts,
		catalog: catalog,
		text:    ml.FitTextModel(docs, opts.Vectorizer),
	}
	s.index(interactions)
	return s, nil
}

func (s *Snapshot) index(interactions []models.Interaction) {
	s.ledger = NewLedger(interactions)
	s.cooc = NewCoOccurrence(s.ledger)
}

// restrict returns a snapshot over the same catalog and fitted text model
// with a different interaction set. The text features do not depend on the
// interactions, so reusing them gives the same results as a full rebuild.
func (s *Snapshot) restrict(interactions []models.Interaction) *Snapshot {
	r := &Snapshot{
		version: s.version,
		builtAt: s.builtAt,
		options: s.options,
		catalog: s.catalog,
		text:    s.text,
	}
	r.index(interactions)
	return r
}

// Version identifies the snapshot.
func (s *Snapshot) Version() string { return s.version }

// BuiltAt is the build time.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Options returns the scoring constants.
func (s *Snapshot) Options() Options { return s.options }

// Catalog returns the item index.
func (s *Snapshot) Catalog() *Catalog { return s.catalog }

// Ledger returns the interaction ledger.
func (s *Snapshot) Ledger() *Ledger { return s.ledger }

// TextModel returns the fitted vector space.
func (s *Snapshot) TextModel() *ml.TextModel { return s.text }

// VectorOf returns the feature vector of an item.
func (s *Snapshot) VectorOf(itemID string) (ml.SparseVector, error) {
	pos, ok := s.catalog.Position(itemID)
	if !ok {
		return ml.SparseVector{}, &NotFoundError{ItemID: itemID}
	}
	v, _ := s.text.Row(pos)
	return v, nil
}

// SimilarityToAll returns cosine similarities of v against every catalog item.
func (s *Snapshot) SimilarityToAll(v ml.SparseVector) []float64 {
	return s.text.SimilarityToAll(v)
}

// Holder publishes the active snapshot. Readers load one pointer per request
// and keep using it even if a rebuild swaps in a newer one.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder returns a holder with an initial snapshot.
func NewHolder(initial *Snapshot) *Holder {
	h := &Holder{}
	h.current.Store(initial)
	return h
}

// Load returns the active snapshot.
func (h *Holder) Load() *Snapshot {
	return h.current.Load()
}

// Swap installs next and returns the previously active snapshot.
func (h *Holder) Swap(next *Snapshot) *Snapshot {
	return h.current.Swap(next)
}
