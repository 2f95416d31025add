// Package kg implements the knowledge graph engine: typed entity CRUD with
// bounded read-through caches over a remote graph store, structured and
// natural-language query translation, document-extraction ingestion, graph
// algorithms, and import/export serializers.
package kg

import (
	"github.com/atlasops/traingraph/internal/registry"
	"github.com/atlasops/traingraph/pkg/common"
	"github.com/atlasops/traingraph/pkg/nlp"
	"github.com/atlasops/traingraph/pkg/store"
)

const (
	defaultCacheSize     = 1000
	defaultMinConfidence = 0.5
	defaultLanguage      = "en"
	defaultIDAttempts    = 10
)

// Engine is the knowledge graph engine. All methods are synchronous; the
// caches are internally synchronized, so an Engine is safe for concurrent
// use by multiple goroutines.
//
// An Engine should be created using New.
type Engine struct {
	store     store.GraphStore
	nlp       nlp.Client
	processed registry.ProcessedDocuments

	nodeCache *entityCache[common.KnowledgeNode]
	relCache  *entityCache[common.KnowledgeRelationship]

	minConfidence float64
	language      string
	idAttempts    int
}

// Params configures a new Engine.
//
// Store is required. NLP may be nil when natural-language operations are not
// used; calling them without an adapter returns ErrNLPQuery. Processed
// defaults to an in-memory registry whose contents do not survive restarts.
type Params struct {
	Store     store.GraphStore
	NLP       nlp.Client
	Processed registry.ProcessedDocuments

	// CacheSize bounds each of the node and relationship caches.
	CacheSize int
	// MinConfidence is the threshold below which entity creation logs a
	// warning. Creation still proceeds. Zero selects the engine default;
	// a negative value turns the warning off.
	MinConfidence float64
	// Language is the fallback language for natural-language queries.
	Language string
}

// New creates an Engine with the given collaborators. Zero values in params
// fall back to engine defaults.
func New(params Params) *Engine {
	cacheSize := params.CacheSize
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	minConfidence := params.MinConfidence
	switch {
	case minConfidence < 0:
		minConfidence = 0
	case minConfidence == 0:
		minConfidence = defaultMinConfidence
	}
	language := params.Language
	if language == "" {
		language = defaultLanguage
	}
	processed := params.Processed
	if processed == nil {
		processed = registry.NewMemory()
	}

	return &Engine{
		store:         params.Store,
		nlp:           params.NLP,
		processed:     processed,
		nodeCache:     newEntityCache[common.KnowledgeNode](cacheSize),
		relCache:      newEntityCache[common.KnowledgeRelationship](cacheSize),
		minConfidence: minConfidence,
		language:      language,
		idAttempts:    defaultIDAttempts,
	}
}
