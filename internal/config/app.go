package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/bobbin/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"BOBBIN_RUNTIME_PATH" envDefault:".bobbin"`

	// Transport flags
	EnableTelegram bool `env:"ENABLE_TELEGRAM" envDefault:"false"`
	EnableCLI      bool `env:"ENABLE_CLI" envDefault:"true"`

	// Identity of the persisted continuity record
	SystemID    string `env:"BOBBIN_SYSTEM_ID" envDefault:"bobbin"`
	DisplayName string `env:"BOBBIN_DISPLAY_NAME" envDefault:"Bobbin"`

	// Live-chat pairs retained verbatim right after a summary rebuild
	RetainTurnsAfterRebuild int `env:"RETAIN_TURNS_AFTER_REBUILD" envDefault:"3"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

// GetRuntimePath resolves a relative runtime path against the home directory,
// same as the package-level bootstrap resolution.
func (c AppConfig) GetRuntimePath() string {
	path := c.RuntimePath
	if !filepath.IsAbs(path) {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path)
	}
	return path
}

func (c AppConfig) GetStatePath() string {
	return filepath.Join(c.GetRuntimePath(), "state.json")
}

func (c AppConfig) GetAuditLogPath() string {
	return filepath.Join(c.GetRuntimePath(), "turns.jsonl")
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.GetRuntimePath(), "bobbin.db")
}

func (c AppConfig) GetSystemPromptPath() string {
	return filepath.Join(c.GetRuntimePath(), "SYSTEM.md")
}
