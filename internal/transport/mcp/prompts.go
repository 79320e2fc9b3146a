package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	composersvc "github.com/MikeSquared-Agency/PromptForge/internal/service/composer"
)

// RegisterPrompts registers the native MCP prompt. Agents fetch it once at
// session startup instead of calling the compose_prompt tool.
// [SRP] Prompt registration only — separated from server lifecycle and tool definitions.
func RegisterPrompts(s *mcpserver.MCPServer, composer *composersvc.Service) {
	s.AddPrompt(
		mcpmcp.NewPrompt("agent_prompt",
			mcpmcp.WithPromptDescription("Fully assembled agent prompt: persona plus optional skills and constraints."),
			mcpmcp.WithArgument("persona",
				mcpmcp.ArgumentDescription("Persona prompt slug"),
				mcpmcp.RequiredArgument(),
			),
			mcpmcp.WithArgument("skills",
				mcpmcp.ArgumentDescription("Comma-separated skill slugs"),
			),
			mcpmcp.WithArgument("constraints",
				mcpmcp.ArgumentDescription("Comma-separated constraint slugs"),
			),
			mcpmcp.WithArgument("branch",
				mcpmcp.ArgumentDescription("Branch to resolve from (default main)"),
			),
		),
		agentPromptHandler(composer),
	)
}

func agentPromptHandler(composer *composersvc.Service) mcpserver.PromptHandlerFunc {
	return func(ctx context.Context, req mcpmcp.GetPromptRequest) (*mcpmcp.GetPromptResult, error) {
		persona := req.Params.Arguments["persona"]
		if persona == "" {
			return nil, fmt.Errorf("persona argument is required")
		}

		result, err := composer.Compose(ctx, composersvc.Request{
			PersonaSlug:     persona,
			SkillSlugs:      splitSlugs(req.Params.Arguments["skills"]),
			ConstraintSlugs: splitSlugs(req.Params.Arguments["constraints"]),
			Branch:          req.Params.Arguments["branch"],
		})
		if err != nil {
			return nil, fmt.Errorf("compose prompt for persona %s: %w", persona, err)
		}

		description := fmt.Sprintf("Agent prompt for persona %s", persona)
		if len(result.Warnings) > 0 {
			description += " (warnings: " + strings.Join(result.Warnings, "; ") + ")"
		}

		return mcpmcp.NewGetPromptResult(
			description,
			[]mcpmcp.PromptMessage{
				mcpmcp.NewPromptMessage(
					mcpmcp.RoleUser,
					mcpmcp.TextContent{
						Type: "text",
						Text: result.Prompt,
					},
				),
			},
		), nil
	}
}
