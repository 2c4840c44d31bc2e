// Package app is the composition root: it turns a config.Config into the
// wired set of repositories, platform clients, services and pipeline
// components shared by the HTTP server and the CLI commands.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/socialpulse/internal/auth"
	"github.com/sakif/socialpulse/internal/config"
	"github.com/sakif/socialpulse/internal/fetcher"
	"github.com/sakif/socialpulse/internal/notifier"
	"github.com/sakif/socialpulse/internal/oracle/gemini"
	"github.com/sakif/socialpulse/internal/pipeline"
	"github.com/sakif/socialpulse/internal/platform/instagram"
	"github.com/sakif/socialpulse/internal/platform/youtube"
	sqliteRepo "github.com/sakif/socialpulse/internal/repository/sqlite"
	"github.com/sakif/socialpulse/internal/service"
	"github.com/sakif/socialpulse/internal/summarizer"
	"github.com/sakif/socialpulse/internal/verifier"
)

// App holds every long-lived component. Close releases the database.
type App struct {
	Config *config.Config
	DB     *sqliteRepo.DB

	Tokens       *auth.TokenService
	Verifier     *verifier.Verifier
	Accounts     *service.AccountService
	Competitors  *service.CompetitorService
	Orchestrator *pipeline.Orchestrator
	Sweeper      *pipeline.Sweeper

	logger *slog.Logger
}

// New opens the database and wires everything together.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if dir := filepath.Dir(cfg.Server.DBPath); cfg.Server.DBPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("app: creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqliteRepo.New(cfg.Server.DBPath)
	if err != nil {
		return nil, fmt.Errorf("app: opening database: %w", err)
	}

	secret := cfg.Server.JWTSecret
	if secret == "" {
		logger.Warn("JWT_SECRET not set, using a random secret; sessions end when the process exits")
		secret = randomSecret()
	}
	tokens, err := auth.NewTokenService(secret, cfg.Server.SessionTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("app: creating token service: %w", err)
	}

	// === Platform clients ===
	yt := youtube.New(youtube.Options{
		APIKey:  cfg.YouTube.APIKey,
		BaseURL: cfg.YouTube.BaseURL,
		Timeout: cfg.HTTPTimeout,
	}, logger.With(slog.String("component", "youtube")))

	igTokens := instagram.NewTokenSource(instagram.TokenConfig{
		BaseURL:         cfg.Instagram.BaseURL,
		Timeout:         cfg.HTTPTimeout,
		LongAccessToken: cfg.Instagram.LongAccessToken,
		AppID:           cfg.Instagram.AppID,
		AppSecret:       cfg.Instagram.AppSecret,
		UserAccessToken: cfg.Instagram.UserAccessToken,
	}, logger)
	ig := instagram.New(instagram.Options{
		BaseURL: cfg.Instagram.BaseURL,
		UserID:  cfg.Instagram.UserID,
		Tokens:  igTokens,
		Timeout: cfg.HTTPTimeout,
	}, logger.With(slog.String("component", "instagram")))

	oracle := gemini.New(gemini.Options{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.HTTPTimeout,
	}, logger.With(slog.String("component", "gemini")))

	// === Domain components ===
	v := verifier.New(yt, ig, logger)
	f := fetcher.New(yt, ig, fetcher.Options{
		Window:   cfg.FetchWindow(),
		PageSize: cfg.YouTube.PageSize,
	}, logger)
	s := summarizer.New(oracle, logger)

	sender := notifier.NewSMTPSender(notifier.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		Timeout:  cfg.HTTPTimeout,
	})
	n := notifier.New(db, sender, cfg.SMTP.Username, logger)

	orch := pipeline.NewOrchestrator(pipeline.Deps{
		Accounts:   db,
		Entries:    db,
		Fetcher:    f,
		Summarizer: s,
		Notifier:   n,
	}, logger)

	var confirmer service.EmailConfirmer
	if cfg.SMTP.ConfirmSignups {
		confirmer = n
	}

	sweeper := pipeline.NewSweeper(db, orch, pipeline.SweepOptions{
		Policy:    cfg.Pipeline.ResendPolicy,
		Threshold: cfg.ResendThreshold(),
	}, logger)

	return &App{
		Config:       cfg,
		DB:           db,
		Tokens:       tokens,
		Verifier:     v,
		Accounts:     service.NewAccountService(db, auth.NewPasswordService(), tokens, v, confirmer, logger),
		Competitors:  service.NewCompetitorService(db, v, logger),
		Orchestrator: orch,
		Sweeper:      sweeper,
		logger:       logger,
	}, nil
}

// Scheduler returns the cron scheduler for the resend sweep, or nil when
// the schedule is empty.
func (a *App) Scheduler() (*pipeline.Scheduler, error) {
	return pipeline.NewScheduler(a.Config.Pipeline.SweepSchedule, a.Sweeper, a.logger)
}

// Ping checks the database.
func (a *App) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return a.DB.Ping(ctx)
}

// Close releases the database.
func (a *App) Close() error {
	return a.DB.Close()
}

func randomSecret() string {
	b := make([]byte, 32)
	// crypto/rand.Read never returns an error on supported platforms
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
