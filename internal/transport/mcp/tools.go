package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	domainversion "github.com/MikeSquared-Agency/PromptForge/internal/domain/version"
	composersvc "github.com/MikeSquared-Agency/PromptForge/internal/service/composer"
	registrysvc "github.com/MikeSquared-Agency/PromptForge/internal/service/registry"
	resolversvc "github.com/MikeSquared-Agency/PromptForge/internal/service/resolver"
	vcssvc "github.com/MikeSquared-Agency/PromptForge/internal/service/vcs"
)

// RegisterTools registers all MCP tools on the server.
// [SRP] Tool registration only.
// [OCP] Add a new tool by adding a new AddTool call — server.go never changes.
func RegisterTools(
	s *mcpserver.MCPServer,
	registry *registrysvc.Service,
	vcs *vcssvc.Service,
	resolver *resolversvc.Service,
	composer *composersvc.Service,
) {
	s.AddTool(mcpmcp.NewTool("compose_prompt",
		mcpmcp.WithDescription("Assemble a complete agent prompt from a persona plus optional skills and constraints. Returns the prompt text, a provenance manifest, and any warnings."),
		mcpmcp.WithString("persona", mcpmcp.Required(), mcpmcp.Description("Persona prompt slug")),
		mcpmcp.WithString("skills", mcpmcp.Description("Comma-separated skill slugs")),
		mcpmcp.WithString("constraints", mcpmcp.Description("Comma-separated constraint slugs")),
		mcpmcp.WithString("variables", mcpmcp.Description("JSON object of {{variable}} substitutions")),
		mcpmcp.WithString("branch", mcpmcp.Description("Branch to resolve from (default main)")),
	), composePromptHandler(composer))

	s.AddTool(mcpmcp.NewTool("resolve_prompt",
		mcpmcp.WithDescription("Resolve a prompt slug to a concrete version. Strategy: latest (default), pinned (requires version), or best_performing (usage-driven)."),
		mcpmcp.WithString("slug", mcpmcp.Required(), mcpmcp.Description("Prompt slug")),
		mcpmcp.WithString("branch", mcpmcp.Description("Branch to resolve from (default main)")),
		mcpmcp.WithString("strategy", mcpmcp.Description("latest, pinned, or best_performing")),
		mcpmcp.WithString("version", mcpmcp.Description("Version number, required for pinned")),
	), resolvePromptHandler(resolver))

	s.AddTool(mcpmcp.NewTool("version_history",
		mcpmcp.WithDescription("List the version history of a prompt, newest first."),
		mcpmcp.WithString("slug", mcpmcp.Required(), mcpmcp.Description("Prompt slug")),
		mcpmcp.WithString("branch", mcpmcp.Description("Branch (default main)")),
		mcpmcp.WithString("limit", mcpmcp.Description("Maximum entries to return")),
	), versionHistoryHandler(registry, vcs))
}

// ── Tool handlers ─────────────────────────────────────────────────────────

func composePromptHandler(composer *composersvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		persona := mcpmcp.ParseString(req, "persona", "")
		if persona == "" {
			return mcpmcp.NewToolResultText("error: persona required"), nil
		}

		variables := map[string]string{}
		if raw := mcpmcp.ParseString(req, "variables", ""); raw != "" {
			if err := json.Unmarshal([]byte(raw), &variables); err != nil {
				return mcpmcp.NewToolResultText("error: variables must be a JSON object of strings"), nil
			}
		}

		result, err := composer.Compose(ctx, composersvc.Request{
			PersonaSlug:     persona,
			SkillSlugs:      splitSlugs(mcpmcp.ParseString(req, "skills", "")),
			ConstraintSlugs: splitSlugs(mcpmcp.ParseString(req, "constraints", "")),
			Variables:       variables,
			Branch:          mcpmcp.ParseString(req, "branch", ""),
		})
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}

		data, _ := json.Marshal(result)
		return mcpmcp.NewToolResultText(string(data)), nil
	}
}

func resolvePromptHandler(resolver *resolversvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		slug := mcpmcp.ParseString(req, "slug", "")
		if slug == "" {
			return mcpmcp.NewToolResultText("error: slug required"), nil
		}
		branch := mcpmcp.ParseString(req, "branch", domainversion.DefaultBranch)
		strategy := resolversvc.Strategy(mcpmcp.ParseString(req, "strategy", string(resolversvc.StrategyLatest)))

		var pinned *int
		if raw := mcpmcp.ParseString(req, "version", ""); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return mcpmcp.NewToolResultText("error: invalid version"), nil
			}
			pinned = &n
		}

		v, err := resolver.Resolve(ctx, slug, branch, pinned, strategy)
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}

		data, _ := json.Marshal(v)
		return mcpmcp.NewToolResultText(string(data)), nil
	}
}

func versionHistoryHandler(registry *registrysvc.Service, vcs *vcssvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		slug := mcpmcp.ParseString(req, "slug", "")
		if slug == "" {
			return mcpmcp.NewToolResultText("error: slug required"), nil
		}
		branch := mcpmcp.ParseString(req, "branch", domainversion.DefaultBranch)

		limit := 0
		if raw := mcpmcp.ParseString(req, "limit", ""); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				return mcpmcp.NewToolResultText("error: invalid limit"), nil
			}
			limit = n
		}

		p, err := registry.Get(ctx, slug)
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}

		versions, err := vcs.History(ctx, p.ID, branch, limit)
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}
		if versions == nil {
			versions = []domainversion.Version{}
		}

		data, _ := json.Marshal(versions)
		return mcpmcp.NewToolResultText(string(data)), nil
	}
}

func splitSlugs(raw string) []string {
	if raw == "" {
		return nil
	}
	var slugs []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			slugs = append(slugs, s)
		}
	}
	return slugs
}
