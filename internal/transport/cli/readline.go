package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sandevgo/bobbin/internal/config"
	"github.com/sandevgo/bobbin/internal/service/turn"
	"github.com/sandevgo/bobbin/internal/service/ui"
	"github.com/sandevgo/bobbin/pkg/log"
)

const defaultSessionID = "cli-local"

type ReadLine struct {
	cfg     *config.AppConfig
	orch    *turn.Orchestrator
	session *turn.Session
	rl      *readline.Instance
}

func NewReadLine(orch *turn.Orchestrator, cfg *config.AppConfig) (*ReadLine, error) {
	if err := os.MkdirAll(cfg.GetRuntimePath(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ui.PromptStyle.Render(">>> "),
		HistoryFile:     filepath.Join(cfg.GetRuntimePath(), "input_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		cfg:     cfg,
		orch:    orch,
		session: &turn.Session{ID: defaultSessionID},
		rl:      rl,
	}, nil
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("ReadLine chat started. Type 'exit' to quit.")

	for {
		// Check context before blocking read
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if len(line) == 0 {
					return nil // Exit on Ctrl+C
				}
				continue
			} else if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}

		_, err = r.orch.RunTurn(ctx, r.session, line, func(delta string) error {
			_, werr := fmt.Fprint(r.rl.Stdout(), delta)
			return werr
		})
		fmt.Fprintln(r.rl.Stdout())

		if err != nil {
			logger.Error().Err(err).Msg("turn failed")
			fmt.Fprintln(r.rl.Stdout(), ui.ErrStyle.Render(fmt.Sprintf("Error: %v", err)))
		}
	}
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
