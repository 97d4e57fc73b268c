// Package wire provides dependency injection for the spellbook
// application. It creates singleton services with lazy initialization.
package wire

import (
	"log"
	"sync"
	"time"

	"github.com/axiomantic/spellbook/internal/adapters/filesystem"
	"github.com/axiomantic/spellbook/internal/adapters/sqlite"
	tmuxadapter "github.com/axiomantic/spellbook/internal/adapters/tmux"
	"github.com/axiomantic/spellbook/internal/adapters/worker"
	"github.com/axiomantic/spellbook/internal/app"
	"github.com/axiomantic/spellbook/internal/config"
	"github.com/axiomantic/spellbook/internal/db"
	"github.com/axiomantic/spellbook/internal/ports/primary"
	"github.com/axiomantic/spellbook/internal/ports/secondary"
)

var (
	sessionService    primary.SessionService
	packetService     primary.PacketService
	manifestService   primary.ManifestService
	escalationService primary.EscalationService
	coordinator       primary.Coordinator
	handoffService    primary.HandoffService
	userConfig        *config.UserConfig
	once              sync.Once
)

// SessionService returns the singleton SessionService instance.
func SessionService() primary.SessionService {
	once.Do(initServices)
	return sessionService
}

// PacketService returns the singleton PacketService instance.
func PacketService() primary.PacketService {
	once.Do(initServices)
	return packetService
}

// ManifestService returns the singleton ManifestService instance.
func ManifestService() primary.ManifestService {
	once.Do(initServices)
	return manifestService
}

// EscalationService returns the singleton EscalationService instance.
func EscalationService() primary.EscalationService {
	once.Do(initServices)
	return escalationService
}

// Coordinator returns the singleton Coordinator instance.
func Coordinator() primary.Coordinator {
	once.Do(initServices)
	return coordinator
}

// HandoffService returns the singleton HandoffService instance.
func HandoffService() primary.HandoffService {
	once.Do(initServices)
	return handoffService
}

// UserConfig returns the loaded user configuration.
func UserConfig() *config.UserConfig {
	once.Do(initServices)
	return userConfig
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	database, err := db.GetDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	cfg, err := config.LoadUserConfig()
	if err != nil {
		log.Fatalf("failed to load user config: %v", err)
	}
	userConfig = cfg

	logWriter := sqlite.NewLogWriter(database)
	sessionRepo := sqlite.NewSessionRepository(database, logWriter)
	artifactRepo := sqlite.NewArtifactRepository(database)
	manifestRepo := sqlite.NewManifestRepository(database, logWriter)
	escalationRepo := sqlite.NewEscalationRepository(database, logWriter)

	workspace := filesystem.NewWorkspaceAdapter()

	// tmux is optional: handoff falls back to printed instructions.
	var tmux secondary.TmuxAdapter
	if t, err := tmuxadapter.NewAdapter(); err == nil {
		tmux = t
	}

	capabilities := worker.NewAdapter(cfg.Worker.Command)
	timeout := time.Duration(cfg.CapabilityTimeoutSeconds()) * time.Second

	sessionService = app.NewSessionService(
		sessionRepo, artifactRepo, workspace,
		capabilities, capabilities, capabilities,
		timeout, cfg.EstimatorConstants(),
	)
	packetService = app.NewPacketService(sessionRepo, manifestRepo, workspace)
	manifestService = app.NewManifestService(manifestRepo, workspace)
	escalationService = app.NewEscalationService(escalationRepo)
	coordinator = app.NewCoordinator(
		sessionRepo, manifestRepo, escalationRepo, workspace,
		capabilities, capabilities, capabilities, timeout,
	)
	handoffService = app.NewHandoffService(sessionRepo, manifestRepo, workspace, tmux)
}
