package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/christopherklint97/studyr/internal/config"
)

var (
	ErrRateLimited     = errors.New("rate limit reached, try again later")
	ErrInvalidResponse = errors.New("model response is not valid JSON")
)

type Provider interface {
	GeneratePlan(ctx context.Context, req PlanRequest) ([]Session, error)
}

// New builds the provider named in cfg.
func New(cfg config.AIConfig, logger *slog.Logger) (Provider, error) {
	version, err := ParsePromptVersion(cfg.PromptVersion)
	if err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAI(cfg, version, logger)
	case "claude-cli":
		cli := NewClaudeCLI(cfg.Model, logger)
		cli.Version = version
		return cli, nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q (want openai or claude-cli)", cfg.Provider)
	}
}
