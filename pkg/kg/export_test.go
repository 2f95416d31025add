package kg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atlasops/traingraph/pkg/common"
	"github.com/atlasops/traingraph/pkg/store"
)

// wholeGraphRows makes the fake store answer the whole-graph export query
// with one row per stored node and relationship.
func wholeGraphRows(fs *fakeStore) func(q store.Query) ([]store.Row, error) {
	return func(q store.Query) ([]store.Row, error) {
		var rows []store.Row
		for id := range fs.nodes {
			rows = append(rows, store.Row{"nodeId": id})
		}
		for id := range fs.rels {
			rows = append(rows, store.Row{"relationshipId": id})
		}
		return rows, nil
	}
}

func seedGraph(t *testing.T, engine *Engine) (string, string, string) {
	t.Helper()
	ctx := context.Background()
	nodeA, err := engine.CreateNode(ctx, common.KnowledgeNode{
		Label: "Forklift operation", Type: common.NodeTypeCompetency, Confidence: 0.85,
		Tags: []string{"warehouse"}, Properties: map[string]string{"level": "2"},
	})
	if err != nil {
		t.Fatalf("CreateNode() error = %v", err)
	}
	nodeB, err := engine.CreateNode(ctx, common.KnowledgeNode{
		Label: "OSHA 1910.178", Type: common.NodeTypeRegulation, Confidence: 0.95,
	})
	if err != nil {
		t.Fatalf("CreateNode() error = %v", err)
	}
	rel, err := engine.CreateRelationship(ctx, common.KnowledgeRelationship{
		SourceID: nodeA, TargetID: nodeB,
		Type: common.TypeRegulatory, Label: "COMPLIES_WITH", Strength: 0.9, Confidence: 0.9,
	})
	if err != nil {
		t.Fatalf("CreateRelationship() error = %v", err)
	}
	return nodeA, nodeB, rel
}

func TestExportImportJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	source := newTestEngine(fs)
	nodeA, _, relID := seedGraph(t, source)
	fs.queryFn = wholeGraphRows(fs)

	path := filepath.Join(t.TempDir(), "graph.json")
	nodes, rels, err := source.ExportGraph(ctx, FormatJSON, path, nil)
	if err != nil {
		t.Fatalf("ExportGraph() error = %v", err)
	}
	if nodes != 2 || rels != 1 {
		t.Fatalf("export counts = %d/%d, want 2/1", nodes, rels)
	}

	target := newTestEngine(newFakeStore())
	nodes, rels, err = target.ImportGraph(ctx, FormatJSON, path, common.MergePreferSecond)
	if err != nil {
		t.Fatalf("ImportGraph() error = %v", err)
	}
	if nodes != 2 || rels != 1 {
		t.Fatalf("import counts = %d/%d, want 2/1", nodes, rels)
	}

	got, err := target.GetNode(ctx, nodeA)
	if err != nil {
		t.Fatalf("GetNode() after import error = %v", err)
	}
	if got.Label != "Forklift operation" || got.Properties["level"] != "2" {
		t.Errorf("imported node = %+v", got)
	}
	if _, err := target.GetRelationship(ctx, relID); err != nil {
		t.Errorf("GetRelationship() after import error = %v", err)
	}
}

func TestImportPreferFirstKeepsExisting(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	engine := newTestEngine(fs)
	seedGraph(t, engine)
	fs.queryFn = wholeGraphRows(fs)

	path := filepath.Join(t.TempDir(), "graph.json")
	if _, _, err := engine.ExportGraph(ctx, FormatJSON, path, nil); err != nil {
		t.Fatalf("ExportGraph() error = %v", err)
	}

	nodes, rels, err := engine.ImportGraph(ctx, FormatJSON, path, common.MergePreferFirst)
	if err != nil {
		t.Fatalf("ImportGraph() error = %v", err)
	}
	if nodes != 0 || rels != 0 {
		t.Errorf("prefer-first reimport wrote %d/%d, want 0/0", nodes, rels)
	}
}

func TestGraphMLRoundTrip(t *testing.T) {
	subgraph := &common.KnowledgeSubgraph{
		Nodes: []common.KnowledgeNode{
			{
				ID: "n1", Label: "Pre-shift inspection", Type: common.NodeTypeProcedure,
				Confidence: 0.9, SourceDocument: "doc-1", Summary: "Daily checks",
				Tags: []string{"safety", "daily"}, Properties: map[string]string{"revision": "3"},
			},
		},
		Relationships: []common.KnowledgeRelationship{
			{
				ID: "r1", SourceID: "n1", TargetID: "n1",
				Type: common.TypeTemporal, Label: "REPEATS", Strength: 0.5, Confidence: 0.7,
				Properties: map[string]string{"interval": "daily"},
			},
		},
	}

	payload, err := encodeGraphML(subgraph)
	if err != nil {
		t.Fatalf("encodeGraphML() error = %v", err)
	}

	decoded, err := decodeGraphML(payload)
	if err != nil {
		t.Fatalf("decodeGraphML() error = %v", err)
	}

	if len(decoded.Nodes) != 1 || len(decoded.Relationships) != 1 {
		t.Fatalf("decoded %d nodes and %d relationships, want 1 and 1", len(decoded.Nodes), len(decoded.Relationships))
	}
	node := decoded.Nodes[0]
	if node.ID != "n1" || node.Label != "Pre-shift inspection" || node.Type != common.NodeTypeProcedure {
		t.Errorf("decoded node = %+v", node)
	}
	if node.Confidence != 0.9 || node.Properties["revision"] != "3" {
		t.Errorf("decoded node detail = %+v", node)
	}
	if len(node.Tags) != 2 || node.Tags[0] != "safety" {
		t.Errorf("decoded tags = %v", node.Tags)
	}
	rel := decoded.Relationships[0]
	if rel.Type != common.TypeTemporal || rel.Strength != 0.5 || rel.Properties["interval"] != "daily" {
		t.Errorf("decoded relationship = %+v", rel)
	}
}

func TestCypherScriptShape(t *testing.T) {
	subgraph := &common.KnowledgeSubgraph{
		Nodes: []common.KnowledgeNode{
			{ID: "n1", Label: "O'Brien's procedure", Type: common.NodeTypeProcedure, Confidence: 0.9},
		},
		Relationships: []common.KnowledgeRelationship{
			{ID: "r1", SourceID: "n1", TargetID: "n1", Type: common.TypeCustom, Label: "SELF", Strength: 1},
		},
	}

	script := encodeCypherScript(subgraph)
	lines := strings.Split(strings.TrimSpace(script), "\n")
	if len(lines) != 2 {
		t.Fatalf("script has %d lines, want 2:\n%s", len(lines), script)
	}
	if !strings.HasPrefix(lines[0], "CREATE (:KnowledgeNode {") {
		t.Errorf("node line = %s", lines[0])
	}
	if !strings.Contains(lines[0], `O\'Brien\'s procedure`) {
		t.Errorf("single quotes not escaped: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "MATCH (a:KnowledgeNode {id: 'n1'}), (b:KnowledgeNode {id: 'n1'}) CREATE (a)-[:CUSTOM {") {
		t.Errorf("relationship line = %s", lines[1])
	}
}

func TestCypherExportKeepsStatementsSingleLine(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	source := newTestEngine(fs)

	nodeA, err := source.CreateNode(ctx, common.KnowledgeNode{
		Label: "Pre-shift inspection", Type: common.NodeTypeProcedure, Confidence: 0.9,
		Summary:    "Check forks\nCheck horn",
		Properties: map[string]string{"steps": "lower forks\r\nset brake"},
	})
	if err != nil {
		t.Fatalf("CreateNode() error = %v", err)
	}
	nodeB, err := source.CreateNode(ctx, common.KnowledgeNode{
		Label: "Forklift operation", Type: common.NodeTypeCompetency, Confidence: 0.85,
	})
	if err != nil {
		t.Fatalf("CreateNode() error = %v", err)
	}
	if _, err := source.CreateRelationship(ctx, common.KnowledgeRelationship{
		SourceID: nodeA, TargetID: nodeB,
		Type: common.TypeHierarchical, Label: "CONTAINS", Strength: 1, Confidence: 1,
	}); err != nil {
		t.Fatalf("CreateRelationship() error = %v", err)
	}
	fs.queryFn = wholeGraphRows(fs)

	path := filepath.Join(t.TempDir(), "graph.cypher")
	if _, _, err := source.ExportGraph(ctx, FormatCypher, path, nil); err != nil {
		t.Fatalf("ExportGraph() error = %v", err)
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read script: %v", err)
	}
	script := string(payload)
	lines := strings.Split(strings.TrimSpace(script), "\n")
	if len(lines) != 3 {
		t.Fatalf("script has %d lines, want 3:\n%s", len(lines), script)
	}
	if !strings.Contains(script, `Check forks\nCheck horn`) {
		t.Errorf("newline not escaped in summary:\n%s", script)
	}
	if !strings.Contains(script, `lower forks\r\nset brake`) {
		t.Errorf("carriage return not escaped in property:\n%s", script)
	}

	fs2 := newFakeStore()
	target := newTestEngine(fs2)
	nodes, rels, err := target.ImportGraph(ctx, FormatCypher, path, common.MergePreferSecond)
	if err != nil {
		t.Fatalf("ImportGraph() error = %v", err)
	}
	if nodes != 2 || rels != 1 {
		t.Errorf("cypher import counts = %d/%d, want 2/1", nodes, rels)
	}
	if len(fs2.queries) != 3 {
		t.Errorf("executed %d statements, want 3", len(fs2.queries))
	}
}

func TestImportCypherScript(t *testing.T) {
	fs := newFakeStore()
	engine := newTestEngine(fs)

	script := "CREATE (:KnowledgeNode {`id`: 'n1', `label`: 'A', `type`: 'entity'});\n" +
		"\n" +
		"// comment line\n" +
		"MATCH (a:KnowledgeNode {id: 'n1'}), (b:KnowledgeNode {id: 'n1'}) CREATE (a)-[:CUSTOM {`id`: 'r1'}]->(b);\n"

	path := filepath.Join(t.TempDir(), "graph.cypher")
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	nodes, rels, err := engine.ImportGraph(context.Background(), FormatCypher, path, common.MergePreferSecond)
	if err != nil {
		t.Fatalf("ImportGraph() error = %v", err)
	}
	if nodes != 1 || rels != 1 {
		t.Errorf("cypher import counts = %d/%d, want 1/1", nodes, rels)
	}
	if len(fs.queries) != 2 {
		t.Errorf("executed %d statements, want 2", len(fs.queries))
	}
}

func TestExportImportRejectUnknownFormat(t *testing.T) {
	engine := newTestEngine(newFakeStore())
	path := filepath.Join(t.TempDir(), "graph.bin")

	if _, _, err := engine.ExportGraph(context.Background(), "parquet", path, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ExportGraph() error = %v, want ErrInvalidInput", err)
	}
	if _, _, err := engine.ImportGraph(context.Background(), "parquet", path, common.MergePreferSecond); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ImportGraph() error = %v, want ErrInvalidInput", err)
	}
}

func TestImportMissingFile(t *testing.T) {
	engine := newTestEngine(newFakeStore())
	_, _, err := engine.ImportGraph(context.Background(), FormatJSON, filepath.Join(t.TempDir(), "absent.json"), common.MergePreferSecond)
	if !errors.Is(err, ErrFileOperation) {
		t.Errorf("ImportGraph() error = %v, want ErrFileOperation", err)
	}
}
