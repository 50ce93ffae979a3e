// Package toolserver implements the tool dispatcher (spec §4.G): the 19
// JSON tool calls of spec §6, wired onto an MCP server the way the teacher
// registers and serves its own tool surface.
package toolserver

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	ctxengine "github.com/focal-dev/focal/internal/context"
	"github.com/focal-dev/focal/internal/logging"
	"github.com/focal-dev/focal/internal/store"
	"github.com/focal-dev/focal/internal/traversal"
)

// Server wires the store, context engine, and traversal engine onto an MCP
// server exposing the full tool surface.
type Server struct {
	store     *store.Store
	dbPath    string
	ctxEngine *ctxengine.Engine
	traverser *traversal.Engine
	sessions  *sessionManager
	mcp       *mcp.Server
}

// New builds a Server and registers every tool; call Run to serve it.
func New(s *store.Store, dbPath string) *Server {
	srv := &Server{
		store:     s,
		dbPath:    dbPath,
		ctxEngine: ctxengine.New(s),
		traverser: traversal.New(s),
		sessions:  newSessionManager(),
	}
	srv.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "focal",
		Version: "0.1.0",
	}, nil)
	srv.registerTools()
	return srv
}

// RunStdio serves the tool protocol over stdin/stdout.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the tool protocol over streamable HTTP at /mcp, the
// transport spec §6's --http flag selects. One *mcp.Server backs every
// connection since focal holds no per-connection state outside sessions,
// which are already keyed by the client-supplied session id (see session.go).
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)

	httpServer := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logging.Infof("toolserver: shutting down http listener on %s", addr)
		return httpServer.Close()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// tool is a convenience wrapper around mcp.Tool construction, grounded on
// the teacher's registerTools (internal/mcp/server.go): one object-typed
// schema per tool, described property by property.
type tool struct {
	name        string
	description string
	properties  map[string]*jsonschema.Schema
	required    []string
}

func (s *Server) addTool(t tool, handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error)) {
	s.mcp.AddTool(&mcp.Tool{
		Name:        t.name,
		Description: t.description,
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: t.properties,
			Required:   t.required,
		},
	}, recoverMiddleware(t.name, handler))
}

// recoverMiddleware catches a panic inside a tool handler and converts it to
// a generic internal-error response instead of letting it crash the process
// (spec §7), grounded on the teacher's recoverFromPanic.
func recoverMiddleware(name string, handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error)) func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				logging.Errorf("toolserver: panic recovered in %s: %v\n%s", name, r, debug.Stack())
				result, err = errorResponse(name, fmt.Errorf("internal error"))
			}
		}()
		return handler(ctx, req)
	}
}

func stringProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func intProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: desc}
}

func boolProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: desc}
}

func stringArrayProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: desc}
}

// resolveRepoID turns an optional repo selector (name or root-path prefix)
// into a *int64 scope for store queries; empty selector means "all
// repositories" (nil scope).
func (s *Server) resolveRepoID(selector string) (*int64, error) {
	if selector == "" {
		return nil, nil
	}
	repo, err := s.store.GetRepository(selector)
	if err != nil {
		return nil, fmt.Errorf("resolve repo %q: %w", selector, err)
	}
	if repo == nil {
		return nil, fmt.Errorf("no repository matches %q", selector)
	}
	return &repo.ID, nil
}

// registerTools registers all 19 tools from spec §6.
func (s *Server) registerTools() {
	s.registerSymbolTools()
	s.registerContextTool()
	s.registerGraphTools()
	s.registerMemoryTools()
	s.registerSystemTools()
}
