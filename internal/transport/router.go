package transport

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/event"
	"github.com/MikeSquared-Agency/PromptForge/internal/domain/scan"
	porteventbus "github.com/MikeSquared-Agency/PromptForge/internal/port/eventbus"
	composersvc "github.com/MikeSquared-Agency/PromptForge/internal/service/composer"
	registrysvc "github.com/MikeSquared-Agency/PromptForge/internal/service/registry"
	resolversvc "github.com/MikeSquared-Agency/PromptForge/internal/service/resolver"
	usagesvc "github.com/MikeSquared-Agency/PromptForge/internal/service/usage"
	vcssvc "github.com/MikeSquared-Agency/PromptForge/internal/service/vcs"

	branchhandler "github.com/MikeSquared-Agency/PromptForge/internal/transport/branch"
	composehandler "github.com/MikeSquared-Agency/PromptForge/internal/transport/compose"
	mcptransport "github.com/MikeSquared-Agency/PromptForge/internal/transport/mcp"
	prompthandler "github.com/MikeSquared-Agency/PromptForge/internal/transport/prompt"
	usagehandler "github.com/MikeSquared-Agency/PromptForge/internal/transport/usage"
	versionhandler "github.com/MikeSquared-Agency/PromptForge/internal/transport/version"
	wshandler "github.com/MikeSquared-Agency/PromptForge/internal/transport/ws"
)

func NewRouter(
	ctx context.Context,
	registrySvc *registrysvc.Service,
	vcsSvc *vcssvc.Service,
	resolverSvc *resolversvc.Service,
	composerSvc *composersvc.Service,
	usageSvc *usagesvc.Service,
	scanner *scan.Scanner,
	mcpServer *mcptransport.Server,
	eventBus porteventbus.EventBus,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORSMiddleware())

	api := r.Group("/api")

	prompts := api.Group("/prompts")
	prompthandler.Register(prompts, registrySvc)
	versionhandler.Register(prompts, registrySvc, vcsSvc)
	branchhandler.Register(prompts, registrySvc, vcsSvc)

	composehandler.Register(api, composerSvc, resolverSvc, scanner)
	usagehandler.Register(api.Group("/usage"), usageSvc)

	if mcpServer != nil {
		r.Any("/mcp", gin.WrapH(mcpServer.Handler()))
	}

	hub := wshandler.NewHub()
	hub.Register(api.Group("/ws"))

	// Bridge: one subscription per domain channel. All events within a channel
	// are forwarded to WS clients; event.Type in the payload lets the client
	// filter further.
	for _, ch := range []event.Channel{
		event.ChannelPrompt,
		event.ChannelVersion,
		event.ChannelBranch,
	} {
		c := ch
		if _, err := eventBus.Subscribe(ctx, c, func(_ context.Context, e event.Event) {
			hub.Broadcast(e)
		}); err != nil {
			slog.Error("failed to subscribe channel to WS hub", "channel", c, "error", err)
		}
	}

	return r
}
