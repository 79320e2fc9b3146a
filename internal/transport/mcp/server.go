package mcp

import (
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	composersvc "github.com/MikeSquared-Agency/PromptForge/internal/service/composer"
	registrysvc "github.com/MikeSquared-Agency/PromptForge/internal/service/registry"
	resolversvc "github.com/MikeSquared-Agency/PromptForge/internal/service/resolver"
	vcssvc "github.com/MikeSquared-Agency/PromptForge/internal/service/vcs"
)

// Server wraps the mark3labs/mcp-go MCPServer and its StreamableHTTPServer.
// [SRP] HTTP server lifecycle only; tools live in tools.go, native prompts in
// prompts.go.
// [OCP] Adding new tools or prompts never requires changes to this file.
type Server struct {
	httpSrv *mcpserver.StreamableHTTPServer
}

func New(
	registry *registrysvc.Service,
	vcs *vcssvc.Service,
	resolver *resolversvc.Service,
	composer *composersvc.Service,
) *Server {
	mcpSrv := mcpserver.NewMCPServer(
		"prompt-forge",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
	)

	RegisterTools(mcpSrv, registry, vcs, resolver, composer)
	RegisterPrompts(mcpSrv, composer)

	return &Server{httpSrv: mcpserver.NewStreamableHTTPServer(mcpSrv)}
}

// Handler returns an http.Handler that serves the MCP SSE endpoint.
func (s *Server) Handler() http.Handler {
	return s.httpSrv
}
