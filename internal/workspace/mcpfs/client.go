/*
Package mcpfs adapts a remote MCP filesystem server to the workspace.Service
interface. The server is launched as a subprocess and spoken to over stdio;
brdgen only ever calls its read_file, search_files, exists, and grep tools.
*/
package mcpfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"brdgen/internal/workspace"
)

// Client is a workspace.Service backed by an MCP server session.
type Client struct {
	session *mcpsdk.ClientSession
	root    string
}

// Connect launches the server command and performs the MCP handshake.
func Connect(ctx context.Context, command []string, root string) (*Client, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("mcpfs: empty server command")
	}
	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "brdgen", Version: "1.0"}, nil)
	session, err := client.Connect(ctx, mcpsdk.NewCommandTransport(exec.Command(command[0], command[1:]...)))
	if err != nil {
		return nil, fmt.Errorf("mcpfs: connect to %s: %w", command[0], err)
	}
	return &Client{session: session, root: root}, nil
}

// Close terminates the server session.
func (c *Client) Close() error {
	return c.session.Close()
}

// Root returns the configured workspace root.
func (c *Client) Root() string { return c.root }

// call invokes one tool and returns the concatenated text content.
func (c *Client) call(ctx context.Context, tool string, args map[string]any) (string, error) {
	res, err := c.session.CallTool(ctx, &mcpsdk.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("mcpfs: call %s: %w", tool, err)
	}
	var b strings.Builder
	for _, content := range res.Content {
		if t, ok := content.(*mcpsdk.TextContent); ok {
			b.WriteString(t.Text)
		}
	}
	if res.IsError {
		return "", fmt.Errorf("mcpfs: %s failed: %s", tool, b.String())
	}
	return b.String(), nil
}

// ReadFile reads one file through the server. Escapes are rejected locally
// before the call; the server enforces its own root as well.
func (c *Client) ReadFile(ctx context.Context, path string) (string, error) {
	if err := guardPath(path); err != nil {
		return "", err
	}
	return c.call(ctx, "read_file", map[string]any{"path": path})
}

// SearchFiles returns paths matching a glob. The server answers with either
// a JSON array or newline-separated paths; both forms are accepted.
func (c *Client) SearchFiles(ctx context.Context, glob string) ([]string, error) {
	text, err := c.call(ctx, "search_files", map[string]any{"pattern": glob})
	if err != nil {
		return nil, err
	}
	return parsePathList(text), nil
}

// Exists reports whether a path exists. Errors read as absent.
func (c *Client) Exists(ctx context.Context, path string) bool {
	if guardPath(path) != nil {
		return false
	}
	text, err := c.call(ctx, "exists", map[string]any{"path": path})
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(text), "true")
}

// Grep runs a bounded content search. Servers without a grep tool yield an
// error, which the verifier already treats as no evidence.
func (c *Client) Grep(ctx context.Context, pattern string, limit int) ([]workspace.Match, error) {
	text, err := c.call(ctx, "grep", map[string]any{"pattern": pattern, "limit": limit})
	if err != nil {
		return nil, err
	}

	var matches []workspace.Match
	if err := json.Unmarshal([]byte(text), &matches); err == nil {
		return bound(matches, limit), nil
	}
	// Fallback: "path:line: text" lines.
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := workspace.Match{Text: line}
		if path, rest, ok := strings.Cut(line, ":"); ok {
			m.Path = path
			if _, after, ok := strings.Cut(rest, ":"); ok {
				m.Text = strings.TrimSpace(after)
			}
		}
		matches = append(matches, m)
	}
	return bound(matches, limit), nil
}

func bound(matches []workspace.Match, limit int) []workspace.Match {
	if limit > 0 && len(matches) > limit {
		return matches[:limit]
	}
	return matches
}

func guardPath(path string) error {
	clean := strings.TrimSpace(path)
	if strings.HasPrefix(clean, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %s", workspace.ErrPathEscapesRoot, path)
	}
	return nil
}

// parsePathList accepts a JSON array of strings or newline-separated paths.
func parsePathList(text string) []string {
	var parsed []string
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		return parsed
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
