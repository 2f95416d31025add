package kg

import (
	"fmt"

	"github.com/atlasops/traingraph/pkg/common"
)

// MergeSubgraphs combines two subgraphs, resolving entities present in both
// (keyed by id) according to the strategy. Ids present in only one side are
// carried through unchanged; output preserves first-seen order (all of a,
// then new entries from b). Metadata maps are merged with b winning on key
// collision.
func MergeSubgraphs(a, b *common.KnowledgeSubgraph, strategy common.MergeStrategy) (*common.KnowledgeSubgraph, error) {
	switch strategy {
	case common.MergePreferFirst, common.MergePreferSecond, common.MergeHigherConfidence, common.MergeProperties:
	default:
		return nil, fmt.Errorf("unknown merge strategy %q: %w", strategy, ErrInvalidInput)
	}

	out := &common.KnowledgeSubgraph{
		Metadata: mergeMetadata(a.Metadata, b.Metadata),
	}

	bNodes := make(map[string]common.KnowledgeNode, len(b.Nodes))
	for _, node := range b.Nodes {
		bNodes[node.ID] = node
	}
	seenNodes := make(map[string]struct{}, len(a.Nodes))
	for _, node := range a.Nodes {
		seenNodes[node.ID] = struct{}{}
		if other, ok := bNodes[node.ID]; ok {
			out.Nodes = append(out.Nodes, resolveNodes(node, other, strategy))
		} else {
			out.Nodes = append(out.Nodes, node)
		}
	}
	for _, node := range b.Nodes {
		if _, ok := seenNodes[node.ID]; !ok {
			out.Nodes = append(out.Nodes, node)
		}
	}

	bRels := make(map[string]common.KnowledgeRelationship, len(b.Relationships))
	for _, rel := range b.Relationships {
		bRels[rel.ID] = rel
	}
	seenRels := make(map[string]struct{}, len(a.Relationships))
	for _, rel := range a.Relationships {
		seenRels[rel.ID] = struct{}{}
		if other, ok := bRels[rel.ID]; ok {
			out.Relationships = append(out.Relationships, resolveRelationships(rel, other, strategy))
		} else {
			out.Relationships = append(out.Relationships, rel)
		}
	}
	for _, rel := range b.Relationships {
		if _, ok := seenRels[rel.ID]; !ok {
			out.Relationships = append(out.Relationships, rel)
		}
	}

	return out, nil
}

// resolveNodes picks or combines the two versions of a node present in both
// inputs. With prefer_higher_confidence, ties keep the first-seen side.
func resolveNodes(a, b common.KnowledgeNode, strategy common.MergeStrategy) common.KnowledgeNode {
	switch strategy {
	case common.MergePreferSecond:
		return b
	case common.MergeHigherConfidence:
		if b.Confidence > a.Confidence {
			return b
		}
		return a
	case common.MergeProperties:
		merged := a
		merged.Properties = mergeMetadata(a.Properties, b.Properties)
		merged.Confidence = maxFloat(a.Confidence, b.Confidence)
		return merged
	default: // prefer_subgraph1
		return a
	}
}

func resolveRelationships(a, b common.KnowledgeRelationship, strategy common.MergeStrategy) common.KnowledgeRelationship {
	switch strategy {
	case common.MergePreferSecond:
		return b
	case common.MergeHigherConfidence:
		if b.Confidence > a.Confidence {
			return b
		}
		return a
	case common.MergeProperties:
		merged := a
		merged.Properties = mergeMetadata(a.Properties, b.Properties)
		merged.Confidence = maxFloat(a.Confidence, b.Confidence)
		merged.Strength = maxFloat(a.Strength, b.Strength)
		return merged
	default:
		return a
	}
}

// mergeMetadata unions two string maps with b winning on key collision.
func mergeMetadata(a, b map[string]string) map[string]string {
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
