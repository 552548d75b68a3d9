/*
Package mcpgraph adapts a remote MCP code-graph server to the graph.Service
interface. Each call renders a read-only Cypher-like query and sends it to
the server's single "query" tool; rows come back as JSON node lists.
*/
package mcpgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"brdgen/internal/brd"
	"brdgen/internal/graph"
)

// Client is a graph.Service backed by an MCP server session.
type Client struct {
	session *mcpsdk.ClientSession
}

// queryResult is the JSON envelope the graph server returns.
type queryResult struct {
	Nodes []struct {
		Name          string   `json:"name"`
		QualifiedName string   `json:"qualified_name"`
		Labels        []string `json:"labels"`
		FilePath      string   `json:"file_path"`
		StartLine     int      `json:"start_line"`
		EndLine       int      `json:"end_line"`
	} `json:"nodes"`
	Relationships []struct {
		Type string `json:"type"`
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"relationships"`
}

// Connect launches the graph server command and performs the MCP handshake.
func Connect(ctx context.Context, command []string) (*Client, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("mcpgraph: empty server command")
	}
	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "brdgen", Version: "1.0"}, nil)
	session, err := client.Connect(ctx, mcpsdk.NewCommandTransport(exec.Command(command[0], command[1:]...)))
	if err != nil {
		return nil, fmt.Errorf("mcpgraph: connect to %s: %w", command[0], err)
	}
	return &Client{session: session}, nil
}

// Close terminates the server session.
func (c *Client) Close() error {
	return c.session.Close()
}

// query sends one Cypher-like statement, always read-only.
func (c *Client) query(ctx context.Context, cypher string) (*queryResult, error) {
	res, err := c.session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "query",
		Arguments: map[string]any{"query": cypher, "read_only": true},
	})
	if err != nil {
		return nil, fmt.Errorf("mcpgraph: query: %w", err)
	}
	var b strings.Builder
	for _, content := range res.Content {
		if t, ok := content.(*mcpsdk.TextContent); ok {
			b.WriteString(t.Text)
		}
	}
	if res.IsError {
		return nil, fmt.Errorf("mcpgraph: server error: %s", b.String())
	}

	var parsed queryResult
	if err := json.Unmarshal([]byte(b.String()), &parsed); err != nil {
		return nil, fmt.Errorf("mcpgraph: parse result: %w", err)
	}
	return &parsed, nil
}

func (r *queryResult) entities() []graph.Entity {
	out := make([]graph.Entity, 0, len(r.Nodes))
	for _, n := range r.Nodes {
		label := ""
		if len(n.Labels) > 0 {
			label = n.Labels[0]
		}
		out = append(out, graph.Entity{
			Name:          n.Name,
			QualifiedName: n.QualifiedName,
			Label:         label,
			FilePath:      n.FilePath,
			StartLine:     n.StartLine,
			EndLine:       n.EndLine,
		})
	}
	return out
}

// FindEntities issues a CONTAINS query over name and qualified_name.
func (c *Client) FindEntities(ctx context.Context, nameContains string, limit int) ([]graph.Entity, error) {
	cypher := fmt.Sprintf(
		`MATCH (n) WHERE toLower(n.name) CONTAINS toLower(%s) OR toLower(n.qualified_name) CONTAINS toLower(%s) RETURN n LIMIT %d`,
		quote(nameContains), quote(nameContains), bounded(limit))
	res, err := c.query(ctx, cypher)
	if err != nil {
		return nil, err
	}
	return res.entities(), nil
}

// SearchEntities issues a case-insensitive regex query.
func (c *Client) SearchEntities(ctx context.Context, pattern string, limit int) ([]graph.Entity, error) {
	re := quote("(?i)" + pattern)
	cypher := fmt.Sprintf(
		`MATCH (n) WHERE n.name =~ %s OR n.qualified_name =~ %s RETURN n LIMIT %d`,
		re, re, bounded(limit))
	res, err := c.query(ctx, cypher)
	if err != nil {
		return nil, err
	}
	return res.entities(), nil
}

// Components lists module-labeled nodes.
func (c *Client) Components(ctx context.Context, limit int) ([]brd.Component, error) {
	cypher := fmt.Sprintf(`MATCH (n) WHERE 'module' IN labels(n) OR 'package' IN labels(n) RETURN n LIMIT %d`, bounded(limit))
	res, err := c.query(ctx, cypher)
	if err != nil {
		return nil, err
	}
	out := make([]brd.Component, 0, len(res.Nodes))
	for _, e := range res.entities() {
		out = append(out, brd.Component{Name: e.Name, Kind: e.Label, Path: e.FilePath})
	}
	return out, nil
}

// Neighbors fetches outgoing and incoming relationship endpoints by name.
func (c *Client) Neighbors(ctx context.Context, name string, limit int) ([]string, []string, error) {
	cypher := fmt.Sprintf(
		`MATCH (n {name: %s})-[r]-(m) RETURN n, r, m LIMIT %d`,
		quote(name), bounded(limit))
	res, err := c.query(ctx, cypher)
	if err != nil {
		return nil, nil, err
	}
	var deps, dependents []string
	for _, rel := range res.Relationships {
		switch {
		case rel.From == name:
			deps = append(deps, rel.To)
		case rel.To == name:
			dependents = append(dependents, rel.From)
		}
	}
	return deps, dependents, nil
}

// Schema asks for the server's label and relationship vocabulary.
func (c *Client) Schema(ctx context.Context) (brd.SchemaInfo, error) {
	res, err := c.query(ctx, `CALL db.schema.visualization()`)
	if err != nil {
		return brd.SchemaInfo{}, err
	}
	var info brd.SchemaInfo
	seenLabel := make(map[string]bool)
	for _, n := range res.Nodes {
		for _, l := range n.Labels {
			if !seenLabel[l] {
				seenLabel[l] = true
				info.NodeLabels = append(info.NodeLabels, l)
			}
		}
	}
	seenRel := make(map[string]bool)
	for _, r := range res.Relationships {
		if !seenRel[r.Type] {
			seenRel[r.Type] = true
			info.RelationshipTypes = append(info.RelationshipTypes, r.Type)
		}
	}
	return info, nil
}

// FeatureNames searches function-like nodes for any of the given terms.
func (c *Client) FeatureNames(ctx context.Context, terms []string, limit int) ([]string, error) {
	var conds []string
	for _, t := range terms {
		if strings.TrimSpace(t) == "" {
			continue
		}
		conds = append(conds, fmt.Sprintf("toLower(n.name) CONTAINS toLower(%s)", quote(t)))
	}
	if len(conds) == 0 {
		return nil, nil
	}
	cypher := fmt.Sprintf(`MATCH (n) WHERE %s RETURN n LIMIT %d`,
		strings.Join(conds, " OR "), bounded(limit))
	res, err := c.query(ctx, cypher)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var names []string
	for _, e := range res.entities() {
		if !seen[e.Name] {
			seen[e.Name] = true
			names = append(names, e.Name)
		}
	}
	return names, nil
}

func bounded(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}

// quote renders a Cypher string literal, escaping quotes and backslashes.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
