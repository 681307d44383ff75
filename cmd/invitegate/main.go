//go:generate swag init -g cmd/invitegate/main.go -d ../../ -o ../../docs

// Command invitegate runs the UID approval gate: a Telegram bot that takes
// UID submissions, posts them to the operators' chat for review, and sends
// approved users a single-use invite into the target group. An optional
// admin HTTP API exposes the same workflow.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/prosteam/invitegate/internal/config"
	httpapi "github.com/prosteam/invitegate/internal/http"
	"github.com/prosteam/invitegate/internal/observability"
	"github.com/prosteam/invitegate/internal/repo"
	"github.com/prosteam/invitegate/internal/services"
	"github.com/prosteam/invitegate/internal/sysutil"
	"github.com/prosteam/invitegate/internal/telegram"
)

// version is set with -ldflags "-X main.version=...".
var version string

const (
	shutdownTimeout = 15 * time.Second
	purgeEvery      = time.Hour
)

// @title                      invitegate admin API
// @version                    1.0
// @description                Review UID submissions and approve or reject them. Approval sends the requester a single-use group invite.
// @BasePath                   /api/v1
// @securityDefinitions.apikey APIKey
// @in                         header
// @name                       X-API-Key
func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.ConfigureLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("invitegate stopped with error")
	}
	log.Info().Msg("invitegate stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	ver := sysutil.Version(version)
	log.Info().Str("version", ver).Msg("starting invitegate")

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if cfg.Bot.Token == "" {
		return errors.New("BOT_TOKEN is required: invites and notifications go through the Bot API")
	}
	// getUpdates holds the connection for up to PollTimeout; every other call
	// is also cut short by its context.
	httpClient := &http.Client{Timeout: cfg.Bot.PollTimeout + cfg.Workflow.CallTimeout}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Bot.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return err
	}
	api.Debug = cfg.Bot.Debug
	log.Info().Str("bot", api.Self.UserName).Msg("bot api authorized")
	client := telegram.NewClient(api)

	g, gctx := errgroup.WithContext(ctx)

	var dispatcher services.Dispatcher = services.InlineDispatcher{Timeout: cfg.Workflow.CallTimeout}
	if cfg.Workflow.DispatchWorkers > 0 {
		async := services.NewAsyncDispatcher(cfg.Workflow.DispatchQueue, cfg.Workflow.DispatchWorkers, cfg.Workflow.CallTimeout)
		dispatcher = async
		g.Go(func() error { return async.Run(gctx) })
	}

	store := repo.NewSubmissionStore(db, cfg.Workflow.ClaimStaleAfter)
	wf := services.NewApprovalWorkflow(store, client, client, client, dispatcher, services.WorkflowConfig{
		AdminChatID:      cfg.Workflow.AdminChatID,
		TargetGroupID:    cfg.Workflow.TargetGroupID,
		InviteTTL:        cfg.Workflow.InviteTTL,
		InviteUsageLimit: cfg.Workflow.InviteUsageLimit,
		CallTimeout:      cfg.Workflow.CallTimeout,
	})

	if cfg.Bot.Enabled {
		inq := services.NewInquiryService(client, cfg.Workflow.AdminChatID, cfg.Workflow.CallTimeout)
		bot := telegram.NewBot(client, api, wf, inq, telegram.BotConfig{
			AdminChatID: cfg.Workflow.AdminChatID,
			Workers:     cfg.Bot.Workers,
			PollTimeout: cfg.Bot.PollTimeout,
			SessionTTL:  cfg.Bot.SessionTTL,
			UserRate:    rate.Limit(cfg.Bot.UserRPS),
			UserBurst:   cfg.Bot.UserBurst,
		})
		g.Go(func() error { return bot.Run(gctx) })
	} else {
		log.Warn().Msg("bot polling disabled; only the admin API can drive the workflow")
	}

	idem := repo.NewIdempotencyStore(db, cfg.IdempotencyTTL)
	g.Go(func() error { return purgeLoop(gctx, idem) })

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		Workflow:    wf,
		Idempotency: idem,
		Ready:       func(ctx context.Context) error { return repo.Ping(ctx, db) },
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Bool("api", cfg.APIEnabled).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// openDB opens SQLite, installs tracing, migrates, and frees claims left by
// a previous process: a decision interrupted by a restart never finishes, so
// its UID must be decidable again.
func openDB(ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			return nil, err
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, err
	}
	n, err := repo.ReleaseStaleClaims(ctx, db, time.Now())
	if err != nil {
		return nil, err
	}
	if n > 0 {
		log.Warn().Int64("released", n).Msg("released claims left by previous run")
	}
	return db, nil
}

// purgeLoop deletes expired idempotency records hourly.
func purgeLoop(ctx context.Context, idem *repo.IdempotencyStore) error {
	t := time.NewTicker(purgeEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := idem.Purge(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("expired idempotency records removed")
			}
		}
	}
}
