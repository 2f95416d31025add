package kg

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/atlasops/traingraph/pkg/common"
	"github.com/atlasops/traingraph/pkg/logger"
	"github.com/atlasops/traingraph/pkg/store"
)

// ImportGraph loads a graph file in the named format into the store and
// returns the number of nodes and relationships written. For json and
// graphml, entities whose ids already exist are resolved against the stored
// version using the merge strategy, with the stored version playing the
// first-subgraph role. Cypher scripts are replayed statement by statement
// without conflict resolution. Per-entity failures are logged and skipped.
func (e *Engine) ImportGraph(ctx context.Context, format, path string, strategy common.MergeStrategy) (int, int, error) {
	switch strategy {
	case common.MergePreferFirst, common.MergePreferSecond, common.MergeHigherConfidence, common.MergeProperties:
	default:
		return 0, 0, fmt.Errorf("unknown merge strategy %q: %w", strategy, ErrInvalidInput)
	}
	switch format {
	case FormatJSON, FormatGraphML, FormatCypher:
	default:
		return 0, 0, fmt.Errorf("unsupported import format %q: %w", format, ErrInvalidInput)
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("read import file %s: %v: %w", path, err, ErrFileOperation)
	}

	var subgraph *common.KnowledgeSubgraph
	switch format {
	case FormatJSON:
		subgraph = &common.KnowledgeSubgraph{}
		if err := json.Unmarshal(payload, subgraph); err != nil {
			return 0, 0, fmt.Errorf("decode json import: %v: %w", err, ErrFileOperation)
		}
	case FormatGraphML:
		subgraph, err = decodeGraphML(payload)
		if err != nil {
			return 0, 0, fmt.Errorf("decode graphml import: %v: %w", err, ErrFileOperation)
		}
	case FormatCypher:
		return e.importCypherScript(ctx, payload)
	}

	nodes, rels := e.importSubgraph(ctx, subgraph, strategy)
	logger.Info("[Import] Graph imported", "format", format, "path", path,
		"nodes", nodes, "relationships", rels)
	return nodes, rels, nil
}

// importSubgraph writes the subgraph through the engine's create and update
// paths. Relationships follow nodes so same-file endpoints exist before the
// edges referencing them.
func (e *Engine) importSubgraph(ctx context.Context, subgraph *common.KnowledgeSubgraph, strategy common.MergeStrategy) (int, int) {
	nodes := 0
	for _, node := range subgraph.Nodes {
		if node.ID == "" {
			logger.Warn("[Import] Skipping node without id", "label", node.Label)
			continue
		}
		existing, err := e.GetNode(ctx, node.ID)
		switch {
		case err == nil:
			if strategy == common.MergePreferFirst {
				continue
			}
			resolved := resolveNodes(*existing, node, strategy)
			if err := e.UpdateNode(ctx, resolved); err != nil {
				logger.Error("[Import] Failed to update node, skipping", "node_id", node.ID, "err", err)
				continue
			}
			nodes++
		case errors.Is(err, ErrNodeNotFound):
			if _, err := e.CreateNode(ctx, node); err != nil {
				logger.Error("[Import] Failed to create node, skipping", "node_id", node.ID, "err", err)
				continue
			}
			nodes++
		default:
			logger.Error("[Import] Failed to resolve node, skipping", "node_id", node.ID, "err", err)
		}
	}

	rels := 0
	for _, rel := range subgraph.Relationships {
		if rel.ID == "" {
			logger.Warn("[Import] Skipping relationship without id", "label", rel.Label)
			continue
		}
		existing, err := e.GetRelationship(ctx, rel.ID)
		switch {
		case err == nil:
			if strategy == common.MergePreferFirst {
				continue
			}
			resolved := resolveRelationships(*existing, rel, strategy)
			if err := e.UpdateRelationship(ctx, resolved); err != nil {
				logger.Error("[Import] Failed to update relationship, skipping", "relationship_id", rel.ID, "err", err)
				continue
			}
			rels++
		case errors.Is(err, ErrRelationshipNotFound):
			if _, err := e.CreateRelationship(ctx, rel); err != nil {
				logger.Error("[Import] Failed to create relationship, skipping", "relationship_id", rel.ID, "err", err)
				continue
			}
			rels++
		default:
			logger.Error("[Import] Failed to resolve relationship, skipping", "relationship_id", rel.ID, "err", err)
		}
	}
	return nodes, rels
}

// importCypherScript replays a script produced by the cypher exporter. Node
// statements start with CREATE, relationship statements with MATCH; blank
// lines and comment lines are ignored.
func (e *Engine) importCypherScript(ctx context.Context, payload []byte) (int, int, error) {
	nodes := 0
	rels := 0
	for _, line := range strings.Split(string(payload), "\n") {
		statement := strings.TrimSuffix(strings.TrimSpace(line), ";")
		if statement == "" || strings.HasPrefix(statement, "//") {
			continue
		}
		if _, err := e.store.ExecuteQuery(ctx, store.Query{Text: statement, Params: map[string]any{}}); err != nil {
			logger.Error("[Import] Failed to execute script statement, skipping", "err", err)
			continue
		}
		if strings.HasPrefix(statement, "MATCH") {
			rels++
		} else {
			nodes++
		}
	}
	logger.Info("[Import] Cypher script imported", "nodes", nodes, "relationships", rels)
	return nodes, rels, nil
}

// decodeGraphML reverses encodeGraphML: declared attributes map back onto
// typed fields, every other data element lands in the property mapping.
func decodeGraphML(payload []byte) (*common.KnowledgeSubgraph, error) {
	var doc graphmlDocument
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, err
	}

	subgraph := &common.KnowledgeSubgraph{}
	for _, n := range doc.Graph.Nodes {
		node := common.KnowledgeNode{ID: n.ID, Properties: map[string]string{}}
		for _, data := range n.Data {
			switch data.Key {
			case "label":
				node.Label = data.Value
			case "type":
				node.Type = data.Value
			case propConfidence:
				node.Confidence = parseFloatOrZero(data.Value)
			case propSourceDocument:
				node.SourceDocument = data.Value
			case propSummary:
				node.Summary = data.Value
			case propTags:
				if data.Value != "" {
					node.Tags = strings.Split(data.Value, tagDelimiter)
				}
			default:
				node.Properties[data.Key] = data.Value
			}
		}
		subgraph.Nodes = append(subgraph.Nodes, node)
	}

	for _, edge := range doc.Graph.Edges {
		rel := common.KnowledgeRelationship{
			ID:         edge.ID,
			SourceID:   edge.Source,
			TargetID:   edge.Target,
			Properties: map[string]string{},
		}
		for _, data := range edge.Data {
			switch data.Key {
			case "edge_type":
				rel.Type = common.ParseRelationshipType(data.Value)
			case "edge_label":
				rel.Label = data.Value
			case "edge_strength":
				rel.Strength = parseFloatOrZero(data.Value)
			case "edge_confidence":
				rel.Confidence = parseFloatOrZero(data.Value)
			default:
				rel.Properties[data.Key] = data.Value
			}
		}
		subgraph.Relationships = append(subgraph.Relationships, rel)
	}
	return subgraph, nil
}

func parseFloatOrZero(raw string) float64 {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return value
}
