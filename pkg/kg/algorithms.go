package kg

import (
	"context"
	"fmt"
	"strings"

	"github.com/atlasops/traingraph/pkg/common"
	"github.com/atlasops/traingraph/pkg/logger"
	"github.com/atlasops/traingraph/pkg/store"
)

// Community detection algorithms supported by DetectCommunities.
// Unrecognized names fall back to AlgorithmLouvain.
const (
	AlgorithmLouvain          = "louvain"
	AlgorithmLabelPropagation = "label_propagation"
	AlgorithmStronglyConnComp = "strongly_connected_components"
	AlgorithmTriangleCount    = "triangle_count"
)

var communityProcedures = map[string]string{
	AlgorithmLouvain:          "gds.louvain.stream",
	AlgorithmLabelPropagation: "gds.labelPropagation.stream",
	AlgorithmStronglyConnComp: "gds.scc.stream",
	AlgorithmTriangleCount:    "gds.triangleCount.stream",
}

// ExecuteQuery runs a raw parameterized query and assembles a deduplicated
// subgraph from the result rows: every row value keyed as a node id is
// resolved through the cache-first node-read path, every relationship id
// likewise. Rows whose ids fail to resolve are logged and skipped.
func (e *Engine) ExecuteQuery(ctx context.Context, q store.Query) (*common.KnowledgeSubgraph, error) {
	rows, err := e.store.ExecuteQuery(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("execute query: %v: %w", err, ErrGraphOperation)
	}
	return e.collectSubgraph(ctx, rows), nil
}

// Row keys carrying node ids end in "odeId" (nodeId, targetNodeId,
// startNodeId); relationship ids are keyed relationshipId.
func (e *Engine) collectSubgraph(ctx context.Context, rows []store.Row) *common.KnowledgeSubgraph {
	subgraph := &common.KnowledgeSubgraph{Metadata: map[string]string{}}
	seenNodes := make(map[string]struct{})
	seenRels := make(map[string]struct{})

	for _, row := range rows {
		for key, value := range row {
			if value == "" {
				continue
			}
			switch {
			case strings.HasSuffix(key, "odeId"):
				if _, ok := seenNodes[value]; ok {
					continue
				}
				node, err := e.GetNode(ctx, value)
				if err != nil {
					logger.Warn("[Engine] Skipping unresolvable node in query result", "node_id", value, "err", err)
					continue
				}
				seenNodes[value] = struct{}{}
				subgraph.Nodes = append(subgraph.Nodes, *node)
			case key == "relationshipId" || strings.HasSuffix(key, "RelationshipId"):
				if _, ok := seenRels[value]; ok {
					continue
				}
				rel, err := e.GetRelationship(ctx, value)
				if err != nil {
					logger.Warn("[Engine] Skipping unresolvable relationship in query result", "relationship_id", value, "err", err)
					continue
				}
				seenRels[value] = struct{}{}
				subgraph.Relationships = append(subgraph.Relationships, *rel)
			}
		}
	}
	return subgraph
}

// CalculateNodeSimilarity scores the semantic similarity of two nodes in
// [0, 1]. Identical ids short-circuit to exactly 1.0 without touching the
// NLP adapter; otherwise both nodes are resolved and their label and
// summary texts are compared.
func (e *Engine) CalculateNodeSimilarity(ctx context.Context, idA, idB string) (float64, error) {
	if idA == idB {
		return 1.0, nil
	}
	if e.nlp == nil {
		return 0, fmt.Errorf("no nlp adapter configured: %w", ErrNLPQuery)
	}

	nodeA, err := e.GetNode(ctx, idA)
	if err != nil {
		return 0, err
	}
	nodeB, err := e.GetNode(ctx, idB)
	if err != nil {
		return 0, err
	}

	score, err := e.nlp.CalculateSimilarity(ctx, similarityText(nodeA), similarityText(nodeB))
	if err != nil {
		return 0, fmt.Errorf("similarity for %s and %s: %v: %w", idA, idB, err, ErrNLPQuery)
	}
	return score, nil
}

func similarityText(node *common.KnowledgeNode) string {
	if node.Summary == "" {
		return node.Label
	}
	return node.Label + " " + node.Summary
}

// FindShortestPath returns the shortest undirected path between two
// existing nodes as a subgraph, bounded by maxDepth hops (inclusive). Both
// endpoints must exist; a missing endpoint fails with ErrNodeNotFound.
func (e *Engine) FindShortestPath(ctx context.Context, fromID, toID string, maxDepth int) (*common.KnowledgeSubgraph, error) {
	if maxDepth <= 0 {
		return nil, fmt.Errorf("max depth must be positive: %w", ErrInvalidInput)
	}
	if _, err := e.GetNode(ctx, fromID); err != nil {
		return nil, err
	}
	if _, err := e.GetNode(ctx, toID); err != nil {
		return nil, err
	}

	// Variable-length bounds cannot be parameterized; maxDepth is a
	// validated integer, not user text.
	text := fmt.Sprintf(
		"MATCH (a:%s {id: $fromId}), (b:%s {id: $toId}), p = shortestPath((a)-[*..%d]-(b)) "+
			"UNWIND nodes(p) AS pathNode UNWIND relationships(p) AS pathRel "+
			"RETURN pathNode.id AS nodeId, pathRel.id AS relationshipId",
		nodeLabel, nodeLabel, maxDepth,
	)
	return e.ExecuteQuery(ctx, store.Query{
		Text:   text,
		Params: map[string]any{"fromId": fromID, "toId": toID},
	})
}

// DetectCommunities partitions graph nodes into clusters using the named
// algorithm and returns a community-id to member-node-id mapping. Unknown
// algorithm names default to louvain. Result rows missing either id are
// logged and skipped (best-effort parsing).
func (e *Engine) DetectCommunities(ctx context.Context, algorithm string, params map[string]string) (map[string][]string, error) {
	procedure, ok := communityProcedures[algorithm]
	if !ok {
		logger.Warn("[Engine] Unknown community algorithm, defaulting to louvain", "algorithm", algorithm)
		procedure = communityProcedures[AlgorithmLouvain]
	}

	config := make(map[string]any, len(params))
	for k, v := range params {
		config[sanitizePropertyKey(k)] = v
	}

	text := fmt.Sprintf(
		"CALL %s($graphName, $config) YIELD nodeId, communityId "+
			"MATCH (n:%s) WHERE id(n) = nodeId "+
			"RETURN n.id AS memberId, toString(communityId) AS communityId",
		procedure, nodeLabel,
	)
	rows, err := e.store.ExecuteQuery(ctx, store.Query{
		Text:   text,
		Params: map[string]any{"graphName": nodeLabel, "config": config},
	})
	if err != nil {
		return nil, fmt.Errorf("community detection (%s): %v: %w", procedure, err, ErrGraphOperation)
	}

	communities := make(map[string][]string)
	for _, row := range rows {
		communityID := row["communityId"]
		memberID := row["memberId"]
		if communityID == "" || memberID == "" {
			logger.Warn("[Engine] Skipping malformed community row", "row", fmt.Sprintf("%v", row))
			continue
		}
		communities[communityID] = append(communities[communityID], memberID)
	}
	return communities, nil
}
