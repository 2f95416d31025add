package kg

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/atlasops/traingraph/pkg/common"
	"github.com/atlasops/traingraph/pkg/store"
)

func TestCalculateNodeSimilaritySelf(t *testing.T) {
	// Identical ids must score exactly 1.0 without any adapter configured.
	engine := New(Params{Store: newFakeStore()})
	score, err := engine.CalculateNodeSimilarity(context.Background(), "same", "same")
	if err != nil {
		t.Fatalf("CalculateNodeSimilarity() error = %v", err)
	}
	if score != 1.0 {
		t.Errorf("score = %v, want 1.0", score)
	}
}

func TestCalculateNodeSimilarityWithoutAdapter(t *testing.T) {
	engine := New(Params{Store: newFakeStore()})
	_, err := engine.CalculateNodeSimilarity(context.Background(), "a", "b")
	if !errors.Is(err, ErrNLPQuery) {
		t.Errorf("CalculateNodeSimilarity() error = %v, want ErrNLPQuery", err)
	}
}

func TestCalculateNodeSimilarityUsesAdapter(t *testing.T) {
	ctx := context.Background()
	engine := New(Params{Store: newFakeStore(), NLP: &fakeNLP{similarity: 0.42}})

	idA, _ := engine.CreateNode(ctx, common.KnowledgeNode{Label: "Forklift", Type: common.NodeTypeEntity, Confidence: 0.8})
	idB, _ := engine.CreateNode(ctx, common.KnowledgeNode{Label: "Pallet truck", Type: common.NodeTypeEntity, Confidence: 0.8})

	score, err := engine.CalculateNodeSimilarity(ctx, idA, idB)
	if err != nil {
		t.Fatalf("CalculateNodeSimilarity() error = %v", err)
	}
	if score != 0.42 {
		t.Errorf("score = %v, want 0.42", score)
	}
}

func TestFindShortestPathValidation(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(newFakeStore())

	_, err := engine.FindShortestPath(ctx, "a", "b", 0)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("FindShortestPath(depth=0) error = %v, want ErrInvalidInput", err)
	}

	_, err = engine.FindShortestPath(ctx, "missing", "also-missing", 3)
	if !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("FindShortestPath(missing) error = %v, want ErrNodeNotFound", err)
	}
}

func TestFindShortestPathAssemblesSubgraph(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	engine := newTestEngine(fs)

	from, _ := engine.CreateNode(ctx, common.KnowledgeNode{Label: "From", Type: common.NodeTypeEntity, Confidence: 0.8})
	mid, _ := engine.CreateNode(ctx, common.KnowledgeNode{Label: "Mid", Type: common.NodeTypeEntity, Confidence: 0.8})
	to, _ := engine.CreateNode(ctx, common.KnowledgeNode{Label: "To", Type: common.NodeTypeEntity, Confidence: 0.8})
	relA, _ := engine.CreateRelationship(ctx, common.KnowledgeRelationship{SourceID: from, TargetID: mid, Type: common.TypeAssociative, Label: "NEXT"})
	relB, _ := engine.CreateRelationship(ctx, common.KnowledgeRelationship{SourceID: mid, TargetID: to, Type: common.TypeAssociative, Label: "NEXT"})

	fs.queryFn = func(q store.Query) ([]store.Row, error) {
		if !strings.Contains(q.Text, "shortestPath((a)-[*..3]-(b))") {
			t.Errorf("query text missing bounded shortestPath: %s", q.Text)
		}
		if q.Params["fromId"] != from || q.Params["toId"] != to {
			t.Errorf("endpoint params = %v", q.Params)
		}
		return []store.Row{
			{"nodeId": from, "relationshipId": relA},
			{"nodeId": mid, "relationshipId": relA},
			{"nodeId": mid, "relationshipId": relB},
			{"nodeId": to, "relationshipId": relB},
		}, nil
	}

	subgraph, err := engine.FindShortestPath(ctx, from, to, 3)
	if err != nil {
		t.Fatalf("FindShortestPath() error = %v", err)
	}

	gotNodes := subgraphNodeIDs(subgraph)
	wantNodes := sortedCopy([]string{from, mid, to})
	if !equalStrings(gotNodes, wantNodes) {
		t.Errorf("path nodes = %v, want %v", gotNodes, wantNodes)
	}
	gotRels := subgraphRelIDs(subgraph)
	wantRels := sortedCopy([]string{relA, relB})
	if !equalStrings(gotRels, wantRels) {
		t.Errorf("path relationships = %v, want %v", gotRels, wantRels)
	}
}

func TestExecuteQuerySkipsUnresolvableIDs(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	engine := newTestEngine(fs)

	known, _ := engine.CreateNode(ctx, common.KnowledgeNode{Label: "Known", Type: common.NodeTypeEntity, Confidence: 0.8})
	fs.queryFn = func(q store.Query) ([]store.Row, error) {
		return []store.Row{
			{"nodeId": known},
			{"nodeId": "ghost"},
			{"relationshipId": "ghost-rel"},
		}, nil
	}

	subgraph, err := engine.ExecuteQuery(ctx, store.Query{Text: "MATCH (n) RETURN n.id AS nodeId"})
	if err != nil {
		t.Fatalf("ExecuteQuery() error = %v", err)
	}
	if len(subgraph.Nodes) != 1 || subgraph.Nodes[0].ID != known {
		t.Errorf("nodes = %+v, want only %s", subgraph.Nodes, known)
	}
	if len(subgraph.Relationships) != 0 {
		t.Errorf("relationships = %+v, want none", subgraph.Relationships)
	}
}

func TestDetectCommunitiesGroupsMembers(t *testing.T) {
	fs := newFakeStore()
	engine := newTestEngine(fs)

	fs.queryFn = func(q store.Query) ([]store.Row, error) {
		if !strings.Contains(q.Text, "gds.louvain.stream") {
			t.Errorf("unknown algorithm did not fall back to louvain: %s", q.Text)
		}
		return []store.Row{
			{"communityId": "0", "memberId": "a"},
			{"communityId": "0", "memberId": "b"},
			{"communityId": "1", "memberId": "c"},
			{"communityId": "", "memberId": "dropped"},
		}, nil
	}

	communities, err := engine.DetectCommunities(context.Background(), "not-a-real-algorithm", nil)
	if err != nil {
		t.Fatalf("DetectCommunities() error = %v", err)
	}
	if len(communities) != 2 {
		t.Fatalf("community count = %d, want 2", len(communities))
	}
	if !equalStrings(sortedCopy(communities["0"]), []string{"a", "b"}) {
		t.Errorf("community 0 = %v, want [a b]", communities["0"])
	}
	if !equalStrings(communities["1"], []string{"c"}) {
		t.Errorf("community 1 = %v, want [c]", communities["1"])
	}
}

func subgraphNodeIDs(s *common.KnowledgeSubgraph) []string {
	ids := make([]string, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)
	return ids
}

func subgraphRelIDs(s *common.KnowledgeSubgraph) []string {
	ids := make([]string, 0, len(s.Relationships))
	for _, r := range s.Relationships {
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)
	return ids
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
