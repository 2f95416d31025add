package kg

import (
	"errors"
	"reflect"
	"testing"

	"github.com/atlasops/traingraph/pkg/common"
)

func mergeFixtures() (*common.KnowledgeSubgraph, *common.KnowledgeSubgraph) {
	a := &common.KnowledgeSubgraph{
		Nodes: []common.KnowledgeNode{
			{ID: "shared", Label: "First", Type: common.NodeTypeEntity, Confidence: 0.6, Properties: map[string]string{"origin": "a", "keep": "yes"}},
			{ID: "only-a", Label: "OnlyA", Type: common.NodeTypeEntity, Confidence: 0.5},
		},
		Relationships: []common.KnowledgeRelationship{
			{ID: "rel-shared", SourceID: "shared", TargetID: "only-a", Type: common.TypeAssociative, Strength: 0.4, Confidence: 0.6},
		},
		Metadata: map[string]string{"source": "a", "a_only": "1"},
	}
	b := &common.KnowledgeSubgraph{
		Nodes: []common.KnowledgeNode{
			{ID: "shared", Label: "Second", Type: common.NodeTypeEntity, Confidence: 0.9, Properties: map[string]string{"origin": "b"}},
			{ID: "only-b", Label: "OnlyB", Type: common.NodeTypeEntity, Confidence: 0.7},
		},
		Relationships: []common.KnowledgeRelationship{
			{ID: "rel-shared", SourceID: "shared", TargetID: "only-a", Type: common.TypeAssociative, Strength: 0.8, Confidence: 0.5},
		},
		Metadata: map[string]string{"source": "b"},
	}
	return a, b
}

func TestMergeSubgraphsUnknownStrategy(t *testing.T) {
	a, b := mergeFixtures()
	_, err := MergeSubgraphs(a, b, common.MergeStrategy("bogus"))
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("MergeSubgraphs() error = %v, want ErrInvalidInput", err)
	}
}

func TestMergeSubgraphsPreferFirst(t *testing.T) {
	a, b := mergeFixtures()
	out, err := MergeSubgraphs(a, b, common.MergePreferFirst)
	if err != nil {
		t.Fatalf("MergeSubgraphs() error = %v", err)
	}

	if got := len(out.Nodes); got != 3 {
		t.Fatalf("node count = %d, want 3", got)
	}
	if out.Nodes[0].Label != "First" {
		t.Errorf("shared node label = %q, want First", out.Nodes[0].Label)
	}
	// First-seen order: all of a, then new entries from b.
	wantOrder := []string{"shared", "only-a", "only-b"}
	for i, id := range wantOrder {
		if out.Nodes[i].ID != id {
			t.Errorf("node[%d].ID = %q, want %q", i, out.Nodes[i].ID, id)
		}
	}
	if out.Metadata["source"] != "b" || out.Metadata["a_only"] != "1" {
		t.Errorf("metadata = %v, want union with b winning", out.Metadata)
	}
}

func TestMergeSubgraphsPreferSecond(t *testing.T) {
	a, b := mergeFixtures()
	out, err := MergeSubgraphs(a, b, common.MergePreferSecond)
	if err != nil {
		t.Fatalf("MergeSubgraphs() error = %v", err)
	}
	if out.Nodes[0].Label != "Second" {
		t.Errorf("shared node label = %q, want Second", out.Nodes[0].Label)
	}
	if out.Relationships[0].Strength != 0.8 {
		t.Errorf("shared relationship strength = %v, want 0.8", out.Relationships[0].Strength)
	}
}

func TestMergeSubgraphsHigherConfidence(t *testing.T) {
	a, b := mergeFixtures()
	out, err := MergeSubgraphs(a, b, common.MergeHigherConfidence)
	if err != nil {
		t.Fatalf("MergeSubgraphs() error = %v", err)
	}
	// Node: b wins (0.9 > 0.6). Relationship: a wins (0.6 >= 0.5).
	if out.Nodes[0].Label != "Second" {
		t.Errorf("shared node label = %q, want Second", out.Nodes[0].Label)
	}
	if out.Relationships[0].Strength != 0.4 {
		t.Errorf("shared relationship strength = %v, want 0.4", out.Relationships[0].Strength)
	}
}

func TestMergeSubgraphsHigherConfidenceTieKeepsFirst(t *testing.T) {
	a, b := mergeFixtures()
	b.Nodes[0].Confidence = a.Nodes[0].Confidence
	out, err := MergeSubgraphs(a, b, common.MergeHigherConfidence)
	if err != nil {
		t.Fatalf("MergeSubgraphs() error = %v", err)
	}
	if out.Nodes[0].Label != "First" {
		t.Errorf("tie broke toward %q, want First", out.Nodes[0].Label)
	}
}

func TestMergeSubgraphsMergeProperties(t *testing.T) {
	a, b := mergeFixtures()
	out, err := MergeSubgraphs(a, b, common.MergeProperties)
	if err != nil {
		t.Fatalf("MergeSubgraphs() error = %v", err)
	}

	shared := out.Nodes[0]
	wantProps := map[string]string{"origin": "b", "keep": "yes"}
	if !reflect.DeepEqual(shared.Properties, wantProps) {
		t.Errorf("merged properties = %v, want %v", shared.Properties, wantProps)
	}
	if shared.Confidence != 0.9 {
		t.Errorf("merged confidence = %v, want 0.9", shared.Confidence)
	}
	rel := out.Relationships[0]
	if rel.Strength != 0.8 || rel.Confidence != 0.6 {
		t.Errorf("merged relationship strength/confidence = %v/%v, want 0.8/0.6", rel.Strength, rel.Confidence)
	}
}

func TestMergeSubgraphsDeterministic(t *testing.T) {
	a, b := mergeFixtures()
	first, err := MergeSubgraphs(a, b, common.MergeProperties)
	if err != nil {
		t.Fatalf("MergeSubgraphs() error = %v", err)
	}
	a2, b2 := mergeFixtures()
	second, err := MergeSubgraphs(a2, b2, common.MergeProperties)
	if err != nil {
		t.Fatalf("MergeSubgraphs() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs produced different merge results")
	}
}
