package kg

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/atlasops/traingraph/pkg/common"
	"github.com/atlasops/traingraph/pkg/logger"
	"github.com/atlasops/traingraph/pkg/store"
)

// nodeLabel is the shared store label for knowledge nodes. It must match
// the labeling convention of the configured GraphStore implementation.
const nodeLabel = "KnowledgeNode"

// Query translates a structured filter into a single parameterized store
// query, executes it, and assembles the result rows into a subgraph.
func (e *Engine) Query(ctx context.Context, filter *common.QueryFilter) (*common.KnowledgeSubgraph, error) {
	return e.ExecuteQuery(ctx, buildFilterQuery(filter))
}

// buildFilterQuery builds a parameterized query from a structured filter.
// Within a predicate group, conditions are ANDed, except tag membership,
// which forms an OR-group; node and relationship groups are ANDed together
// when both are present. User-controlled values only ever travel through
// the parameter map.
func buildFilterQuery(filter *common.QueryFilter) store.Query {
	params := make(map[string]any)
	var conds []string

	hasRel := filter != nil && filter.Relationship != nil
	hasStart := filter != nil && filter.StartNodeID != ""

	var match, returns string
	switch {
	case hasStart:
		match = "MATCH (s:" + nodeLabel + " {id: $startNodeId})-[r]-(n:" + nodeLabel + ")"
		returns = "RETURN DISTINCT s.id AS startNodeId, n.id AS nodeId, r.id AS relationshipId"
		params["startNodeId"] = filter.StartNodeID
	case hasRel:
		match = "MATCH (n:" + nodeLabel + ")-[r]->(m:" + nodeLabel + ")"
		returns = "RETURN DISTINCT n.id AS nodeId, m.id AS targetNodeId, r.id AS relationshipId"
	default:
		match = "MATCH (n:" + nodeLabel + ")"
		returns = "RETURN DISTINCT n.id AS nodeId"
	}

	if filter != nil && filter.Node != nil {
		conds = append(conds, nodeConditions(filter.Node, params)...)
	}
	if hasRel {
		conds = append(conds, relationshipConditions(filter.Relationship, params)...)
	}

	var b strings.Builder
	b.WriteString(match)
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ")
	b.WriteString(returns)
	if filter != nil && filter.Limit > 0 {
		b.WriteString(" LIMIT $limit")
		params["limit"] = filter.Limit
	}

	return store.Query{Text: b.String(), Params: params}
}

func nodeConditions(f *common.NodeFilter, params map[string]any) []string {
	var conds []string
	if f.Type != "" {
		conds = append(conds, "n.type = $nodeType")
		params["nodeType"] = f.Type
	}
	if len(f.Labels) > 0 {
		conds = append(conds, "n.label IN $nodeLabels")
		params["nodeLabels"] = f.Labels
	}
	if len(f.Tags) > 0 {
		// Tags are stored as a delimiter-separated string; membership in
		// any listed tag matches (OR-group).
		group := make([]string, 0, len(f.Tags))
		for i, tag := range f.Tags {
			name := fmt.Sprintf("nodeTag%d", i)
			group = append(group, "n.tags CONTAINS $"+name)
			params[name] = tag
		}
		conds = append(conds, "("+strings.Join(group, " OR ")+")")
	}
	if len(f.SourceDocuments) > 0 {
		conds = append(conds, "n.source_document IN $nodeSourceDocuments")
		params["nodeSourceDocuments"] = f.SourceDocuments
	}
	if f.MinConfidence > 0 {
		conds = append(conds, "toFloat(n.confidence) >= $nodeMinConfidence")
		params["nodeMinConfidence"] = f.MinConfidence
	}
	for i, key := range sortedKeys(f.Properties) {
		name := fmt.Sprintf("nodeProp%d", i)
		conds = append(conds, "n.`"+sanitizePropertyKey(key)+"` = $"+name)
		params[name] = f.Properties[key]
	}
	return conds
}

func relationshipConditions(f *common.RelationshipFilter, params map[string]any) []string {
	var conds []string
	if len(f.Types) > 0 {
		names := make([]string, 0, len(f.Types))
		for _, t := range f.Types {
			names = append(names, t.String())
		}
		conds = append(conds, "type(r) IN $relTypes")
		params["relTypes"] = names
	}
	if len(f.Labels) > 0 {
		conds = append(conds, "r.label IN $relLabels")
		params["relLabels"] = f.Labels
	}
	if f.MinStrength > 0 {
		conds = append(conds, "toFloat(r.strength) >= $relMinStrength")
		params["relMinStrength"] = f.MinStrength
	}
	if f.MinConfidence > 0 {
		conds = append(conds, "toFloat(r.confidence) >= $relMinConfidence")
		params["relMinConfidence"] = f.MinConfidence
	}
	for i, key := range sortedKeys(f.Properties) {
		name := fmt.Sprintf("relProp%d", i)
		conds = append(conds, "r.`"+sanitizePropertyKey(key)+"` = $"+name)
		params[name] = f.Properties[key]
	}
	return conds
}

// sortedKeys returns the map's keys in sorted order so generated query text
// is deterministic.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Property names cannot be parameterized; restrict them to identifier
// characters before they reach the query text.
func sanitizePropertyKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NLQueryOptions configures NaturalLanguageQuery. Zero values fall back to
// the engine's defaults; MinConfidence of 0 disables post-filtering.
type NLQueryOptions struct {
	Language      string
	Context       string
	MinConfidence float64
	Limit         int
}

// NaturalLanguageQuery answers a free-text request against the graph. The
// NLP adapter first converts the text to a structured filter; when that
// yields nothing usable, recognized entity values become label-membership
// predicates instead. When MinConfidence is set, the returned subgraph's
// nodes and relationships are post-filtered independently against their own
// confidence fields.
func (e *Engine) NaturalLanguageQuery(ctx context.Context, text string, opts NLQueryOptions) (*common.KnowledgeSubgraph, error) {
	if e.nlp == nil {
		return nil, fmt.Errorf("no nlp adapter configured: %w", ErrNLPQuery)
	}

	language := opts.Language
	if language == "" {
		language = e.language
	}

	filter, err := e.nlp.ConvertToStructuredQuery(ctx, text, opts.Context, language)
	if err != nil || filter.IsEmpty() {
		if err != nil {
			logger.Debug("[Engine] Structured query conversion failed, falling back to entity extraction", "err", err)
		}
		entities, exErr := e.nlp.ExtractEntities(ctx, text)
		if exErr != nil {
			return nil, fmt.Errorf("natural language query %q: %v: %w", text, exErr, ErrNLPQuery)
		}
		if len(entities) == 0 {
			return nil, fmt.Errorf("natural language query %q: no entities recognized: %w", text, ErrNLPQuery)
		}
		labels := make([]string, 0, len(entities))
		for _, entity := range entities {
			labels = append(labels, entity.Value)
		}
		filter = &common.QueryFilter{Node: &common.NodeFilter{Labels: labels}}
	}
	if opts.Limit > 0 {
		filter.Limit = opts.Limit
	}

	subgraph, err := e.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	if opts.MinConfidence > 0 {
		subgraph = filterByConfidence(subgraph, opts.MinConfidence)
	}
	return subgraph, nil
}

// filterByConfidence drops nodes and relationships below the threshold,
// each checked against its own confidence field.
func filterByConfidence(subgraph *common.KnowledgeSubgraph, min float64) *common.KnowledgeSubgraph {
	out := &common.KnowledgeSubgraph{Metadata: subgraph.Metadata}
	for _, node := range subgraph.Nodes {
		if node.Confidence >= min {
			out.Nodes = append(out.Nodes, node)
		}
	}
	for _, rel := range subgraph.Relationships {
		if rel.Confidence >= min {
			out.Relationships = append(out.Relationships, rel)
		}
	}
	return out
}
