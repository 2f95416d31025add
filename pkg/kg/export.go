package kg

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/atlasops/traingraph/pkg/common"
	"github.com/atlasops/traingraph/pkg/logger"
	"github.com/atlasops/traingraph/pkg/store"
)

// Export and import formats.
const (
	FormatJSON    = "json"
	FormatGraphML = "graphml"
	FormatCypher  = "cypher"
)

// ExportGraph writes the graph selected by the filter to a local file in the
// named format. A nil or empty filter exports the whole graph, relationships
// included. Unsupported formats fail with ErrInvalidInput; write failures
// with ErrFileOperation. Returns the number of nodes and relationships
// exported.
func (e *Engine) ExportGraph(ctx context.Context, format, path string, filter *common.QueryFilter) (int, int, error) {
	subgraph, err := e.exportSubgraph(ctx, filter)
	if err != nil {
		return 0, 0, err
	}

	var payload []byte
	switch format {
	case FormatJSON:
		payload, err = json.MarshalIndent(subgraph, "", "  ")
		if err != nil {
			return 0, 0, fmt.Errorf("encode json export: %v: %w", err, ErrFileOperation)
		}
	case FormatGraphML:
		payload, err = encodeGraphML(subgraph)
		if err != nil {
			return 0, 0, fmt.Errorf("encode graphml export: %v: %w", err, ErrFileOperation)
		}
	case FormatCypher:
		payload = []byte(encodeCypherScript(subgraph))
	default:
		return 0, 0, fmt.Errorf("unsupported export format %q: %w", format, ErrInvalidInput)
	}

	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return 0, 0, fmt.Errorf("write export file %s: %v: %w", path, err, ErrFileOperation)
	}
	logger.Info("[Export] Graph exported", "format", format, "path", path,
		"nodes", len(subgraph.Nodes), "relationships", len(subgraph.Relationships))
	return len(subgraph.Nodes), len(subgraph.Relationships), nil
}

// exportSubgraph resolves the filter to the subgraph to serialize. An empty
// filter selects every node together with every relationship between them.
func (e *Engine) exportSubgraph(ctx context.Context, filter *common.QueryFilter) (*common.KnowledgeSubgraph, error) {
	if filter != nil && !filter.IsEmpty() {
		return e.Query(ctx, filter)
	}
	return e.ExecuteQuery(ctx, store.Query{
		Text: "MATCH (n:" + nodeLabel + ") OPTIONAL MATCH (n)-[r]->(m:" + nodeLabel + ") " +
			"RETURN DISTINCT n.id AS nodeId, m.id AS targetNodeId, r.id AS relationshipId",
		Params: map[string]any{},
	})
}

// GraphML serialization. Well-known node and edge attributes get declared
// keys; remaining free-form properties are emitted under their own names.
type graphmlDocument struct {
	XMLName xml.Name     `xml:"graphml"`
	XMLNS   string       `xml:"xmlns,attr"`
	Keys    []graphmlKey `xml:"key"`
	Graph   graphmlGraph `xml:"graph"`
}

type graphmlKey struct {
	ID       string `xml:"id,attr"`
	For      string `xml:"for,attr"`
	AttrName string `xml:"attr.name,attr"`
	AttrType string `xml:"attr.type,attr"`
}

type graphmlGraph struct {
	ID          string        `xml:"id,attr"`
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	ID     string        `xml:"id,attr"`
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphmlData `xml:"data"`
}

type graphmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

const graphmlNamespace = "http://graphml.graphdrawing.org/xmlns"

func encodeGraphML(subgraph *common.KnowledgeSubgraph) ([]byte, error) {
	doc := graphmlDocument{
		XMLNS: graphmlNamespace,
		Keys: []graphmlKey{
			{ID: "label", For: "node", AttrName: "label", AttrType: "string"},
			{ID: "type", For: "node", AttrName: "type", AttrType: "string"},
			{ID: propConfidence, For: "node", AttrName: propConfidence, AttrType: "double"},
			{ID: propSourceDocument, For: "node", AttrName: propSourceDocument, AttrType: "string"},
			{ID: propSummary, For: "node", AttrName: propSummary, AttrType: "string"},
			{ID: propTags, For: "node", AttrName: propTags, AttrType: "string"},
			{ID: "edge_type", For: "edge", AttrName: "type", AttrType: "string"},
			{ID: "edge_label", For: "edge", AttrName: "label", AttrType: "string"},
			{ID: "edge_strength", For: "edge", AttrName: propStrength, AttrType: "double"},
			{ID: "edge_confidence", For: "edge", AttrName: propConfidence, AttrType: "double"},
		},
		Graph: graphmlGraph{ID: "G", EdgeDefault: "directed"},
	}

	for _, node := range subgraph.Nodes {
		data := []graphmlData{
			{Key: "label", Value: node.Label},
			{Key: "type", Value: node.Type},
			{Key: propConfidence, Value: formatFloat(node.Confidence)},
		}
		if node.SourceDocument != "" {
			data = append(data, graphmlData{Key: propSourceDocument, Value: node.SourceDocument})
		}
		if node.Summary != "" {
			data = append(data, graphmlData{Key: propSummary, Value: node.Summary})
		}
		if len(node.Tags) > 0 {
			data = append(data, graphmlData{Key: propTags, Value: strings.Join(node.Tags, tagDelimiter)})
		}
		for _, key := range sortedKeys(node.Properties) {
			data = append(data, graphmlData{Key: key, Value: node.Properties[key]})
		}
		doc.Graph.Nodes = append(doc.Graph.Nodes, graphmlNode{ID: node.ID, Data: data})
	}

	for _, rel := range subgraph.Relationships {
		data := []graphmlData{
			{Key: "edge_type", Value: rel.Type.String()},
			{Key: "edge_label", Value: rel.Label},
			{Key: "edge_strength", Value: formatFloat(rel.Strength)},
			{Key: "edge_confidence", Value: formatFloat(rel.Confidence)},
		}
		for _, key := range sortedKeys(rel.Properties) {
			data = append(data, graphmlData{Key: key, Value: rel.Properties[key]})
		}
		doc.Graph.Edges = append(doc.Graph.Edges, graphmlEdge{
			ID:     rel.ID,
			Source: rel.SourceID,
			Target: rel.TargetID,
			Data:   data,
		})
	}

	payload, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), payload...), nil
}

// encodeCypherScript renders the subgraph as an executable script: one CREATE
// statement per node followed by one MATCH-and-CREATE statement per
// relationship, so the script is replayable against an empty database.
func encodeCypherScript(subgraph *common.KnowledgeSubgraph) string {
	var b strings.Builder
	for _, node := range subgraph.Nodes {
		props := nodeProperties(&node)
		props["id"] = node.ID
		props["label"] = node.Label
		props["type"] = node.Type
		fmt.Fprintf(&b, "CREATE (:%s %s);\n", nodeLabel, cypherPropertyMap(props))
	}
	for _, rel := range subgraph.Relationships {
		props := relationshipProperties(&rel)
		props["id"] = rel.ID
		props["label"] = rel.Label
		fmt.Fprintf(&b, "MATCH (a:%s {id: '%s'}), (b:%s {id: '%s'}) CREATE (a)-[:%s %s]->(b);\n",
			nodeLabel, escapeCypherString(rel.SourceID),
			nodeLabel, escapeCypherString(rel.TargetID),
			rel.Type.String(), cypherPropertyMap(props))
	}
	return b.String()
}

// cypherPropertyMap renders properties as a Cypher map literal with keys in
// sorted order so script output is deterministic.
func cypherPropertyMap(props map[string]string) string {
	parts := make([]string, 0, len(props))
	for _, key := range sortedKeys(props) {
		parts = append(parts, fmt.Sprintf("`%s`: '%s'", sanitizePropertyKey(key), escapeCypherString(props[key])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// escapeCypherString escapes a value for a single-quoted Cypher literal.
// Newlines become \n escapes so every statement stays on one line and the
// script remains replayable line by line.
func escapeCypherString(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, "\n", `\n`)
	value = strings.ReplaceAll(value, "\r", `\r`)
	return strings.ReplaceAll(value, "'", `\'`)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
