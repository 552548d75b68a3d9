package cmd

import (
	"context"
	"fmt"

	"brdgen/internal/config"
	"brdgen/internal/graph"
	"brdgen/internal/graph/mcpgraph"
	"brdgen/internal/graph/sqlitegraph"
	"brdgen/internal/workspace"
	"brdgen/internal/workspace/mcpfs"
)

// openGraph connects the configured code-graph backend. The returned
// closer is always safe to call.
func openGraph(ctx context.Context) (graph.Service, func(), error) {
	switch cfg.Graph.Backend {
	case "mcp":
		client, err := mcpgraph.Connect(ctx, cfg.Graph.MCPCommand)
		if err != nil {
			return nil, nil, fmt.Errorf("connect graph server: %w", err)
		}
		return client, func() { _ = client.Close() }, nil
	default:
		store, err := sqlitegraph.Open(config.ResolvePath(workspaceRoot, cfg.Graph.DSN))
		if err != nil {
			return nil, nil, fmt.Errorf("open graph database: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	}
}

// openWorkspace connects the configured filesystem backend rooted at the
// workspace.
func openWorkspace(ctx context.Context) (workspace.Service, func(), error) {
	root := cfg.Workspace.Root
	if root == "" {
		root = workspaceRoot
	}
	switch cfg.Workspace.Backend {
	case "mcp":
		client, err := mcpfs.Connect(ctx, cfg.Workspace.MCPCommand, root)
		if err != nil {
			return nil, nil, fmt.Errorf("connect filesystem server: %w", err)
		}
		return client, func() { _ = client.Close() }, nil
	default:
		local, err := workspace.NewLocal(root)
		if err != nil {
			return nil, nil, fmt.Errorf("open workspace: %w", err)
		}
		return local, func() {}, nil
	}
}
