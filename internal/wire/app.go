package wire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/PromptForge/internal/adapter/memory"
	pgdb "github.com/MikeSquared-Agency/PromptForge/internal/adapter/postgres"
	pgeventbus "github.com/MikeSquared-Agency/PromptForge/internal/adapter/postgres/eventbus"
	pglocker "github.com/MikeSquared-Agency/PromptForge/internal/adapter/postgres/locker"
	pgstore "github.com/MikeSquared-Agency/PromptForge/internal/adapter/postgres/store"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/scan"
	porteventbus "github.com/MikeSquared-Agency/PromptForge/internal/port/eventbus"
	portlocker "github.com/MikeSquared-Agency/PromptForge/internal/port/locker"
	portstore "github.com/MikeSquared-Agency/PromptForge/internal/port/store"

	composersvc "github.com/MikeSquared-Agency/PromptForge/internal/service/composer"
	registrysvc "github.com/MikeSquared-Agency/PromptForge/internal/service/registry"
	resolversvc "github.com/MikeSquared-Agency/PromptForge/internal/service/resolver"
	usagesvc "github.com/MikeSquared-Agency/PromptForge/internal/service/usage"
	vcssvc "github.com/MikeSquared-Agency/PromptForge/internal/service/vcs"

	"github.com/MikeSquared-Agency/PromptForge/internal/transport"
	mcptransport "github.com/MikeSquared-Agency/PromptForge/internal/transport/mcp"
)

// App holds the top-level resources needed to run and gracefully stop the server.
type App struct {
	Pool      *pgxpool.Pool // nil in memory mode
	Server    *http.Server
	MCPServer *mcptransport.Server
}

// Build is the composition root: the only place concrete types are wired to their
// interface dependencies. With DATABASE_URL set the store, locker, and event bus
// run on Postgres; without it everything is in-process, for local development.
func Build(ctx context.Context) (*App, error) {
	var (
		pool     *pgxpool.Pool
		store    portstore.RecordStore
		locker   portlocker.AdvisoryLocker
		eventBus porteventbus.EventBus
	)

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		var err error
		pool, err = pgdb.Connect(ctx, dbURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		store = pgstore.New(pool)
		locker = pglocker.New(pool)
		eventBus = pgeventbus.New(pool)
	} else {
		slog.Warn("DATABASE_URL not set — running with in-memory storage")
		store = memory.NewStore()
		locker = memory.NewLocker()
		eventBus = memory.NewEventBus()
	}

	// ── Services ─────────────────────────────────────────────────────────────
	scanner := scan.NewScanner()
	registrySvc := registrysvc.NewService(store, eventBus)
	vcsSvc := vcssvc.NewService(store, scanner, locker, eventBus)
	resolverSvc := resolversvc.NewService(store, vcsSvc)
	composerSvc := composersvc.NewService(resolverSvc, registrySvc)
	usageSvc := usagesvc.NewService(store)

	mcpServer := mcptransport.New(registrySvc, vcsSvc, resolverSvc, composerSvc)

	// ── Transport ─────────────────────────────────────────────────────────────
	router := transport.NewRouter(
		ctx,
		registrySvc,
		vcsSvc,
		resolverSvc,
		composerSvc,
		usageSvc,
		scanner,
		mcpServer,
		eventBus,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	slog.Info("application wired", "port", port, "postgres", pool != nil)

	return &App{
		Pool:      pool,
		Server:    server,
		MCPServer: mcpServer,
	}, nil
}
