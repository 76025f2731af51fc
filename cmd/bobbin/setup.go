package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/bobbin/internal/config"
	"github.com/sandevgo/bobbin/internal/contextwin"
	"github.com/sandevgo/bobbin/internal/providers/llm"
	"github.com/sandevgo/bobbin/internal/service/audit"
	"github.com/sandevgo/bobbin/internal/service/signals"
	"github.com/sandevgo/bobbin/internal/service/turn"
	"github.com/sandevgo/bobbin/internal/state"
	"github.com/sandevgo/bobbin/internal/storage/sqlite"
	"github.com/sandevgo/bobbin/internal/tokens"
	"github.com/sandevgo/bobbin/internal/transport/cli"
	"github.com/sandevgo/bobbin/internal/transport/telegram"
	"github.com/sandevgo/bobbin/pkg/log"
	"github.com/sandevgo/bobbin/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	if err := initEnv(config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	budgetCfg := config.NewBudgetConfig(ctx)
	llmCfg := config.NewLLMConfig(ctx)

	// 2. Tokenizer + window manager. A missing encoding is fatal: token
	// accounting must not degrade to an approximation.
	tok, err := tokens.NewTokenizer(budgetCfg.TokenizerEncoding)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load tokenizer")
	}
	window := contextwin.NewManager(tok, budgetCfg.Budget())

	// 3. Continuity state + audit log
	store, err := state.NewStore(appCfg.GetStatePath(), appCfg.SystemID, appCfg.DisplayName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open continuity state")
	}
	auditLog, err := audit.NewLogger(appCfg.GetAuditLogPath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open audit log")
	}

	// 4. Storage (transcript archive + preference signals)
	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup(db.Close))

	// 5. Chat client
	chat, err := llm.NewClient(ctx, llmCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize LLM provider")
	}

	// 6. Turn orchestrator
	orch := turn.NewOrchestrator(
		store,
		window,
		chat,
		auditLog,
		signals.NewProvider(sqlite.NewSignals(db)),
		sqlite.NewTranscripts(db),
		turn.Options{
			SystemPromptPath:        appCfg.GetSystemPromptPath(),
			RetainTurnsAfterRebuild: appCfg.RetainTurnsAfterRebuild,
		},
	)

	// 7. Transports
	if appCfg.EnableCLI {
		rl, err := cli.NewReadLine(orch, appCfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize CLI transport")
		}
		services = append(services, rl)
	}
	if appCfg.EnableTelegram {
		tgCfg := config.NewTelegramConfig(ctx)
		bot, err := telegram.NewBot(ctx, tgCfg, orch)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize telegram transport")
		}
		services = append(services, bot)
	}

	return services
}

func initEnv(runtimePath string) error {
	envFile := filepath.Join(runtimePath, ".env")
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(envFile)
}
