package forumgw

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"
	"github.com/nasermirzaei89/forumgw/authentication"
	"github.com/nasermirzaei89/forumgw/authorization"
	"github.com/nasermirzaei89/forumgw/authorization/casbin"
	"github.com/nasermirzaei89/forumgw/contents"
	"github.com/nasermirzaei89/forumgw/db/sqlite3"
	"github.com/nasermirzaei89/forumgw/discuss"
	"github.com/nasermirzaei89/forumgw/notifications"
	"github.com/nasermirzaei89/forumgw/search"
	"github.com/nasermirzaei89/forumgw/seed"
	"github.com/nasermirzaei89/forumgw/server"
	"github.com/nasermirzaei89/forumgw/throttle"
	"github.com/nasermirzaei89/forumgw/votes"
	"github.com/nasermirzaei89/forumgw/web"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg           *Config
	server        *server.Server
	handler       http.Handler
	db            *sql.DB
	rdb           *redis.Client
	authzProvider *casbin.AuthorizationProvider
	authSvc       *authentication.Service
	contentsBase  *contents.BaseService
	discussBase   *discuss.BaseService
	votesBase     *votes.BaseService
}

//go:embed policy.csv
var defaultAuthorizationPolicyContent string

func NewApp(ctx context.Context, cfg *Config) (*App, error) {
	db, err := sqlite3.NewDB(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	app := &App{
		cfg:    cfg,
		server: cfg.Server,
		db:     db,
	}

	err = app.init(ctx)
	if err != nil {
		app.close(ctx)

		return nil, err
	}

	return app, nil
}

func (app *App) init(ctx context.Context) error {
	err := sqlite3.MigrateUp(ctx, app.db)
	if err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	clock := clockwork.NewRealClock()

	userRepo := sqlite3.NewUserRepository(app.db)
	sessionRepo := sqlite3.NewSessionRepository(app.db)
	postRepo := sqlite3.NewPostRepository(app.db)
	moduleRepo := sqlite3.NewModuleRepository(app.db)
	commentRepo := sqlite3.NewCommentRepository(app.db)
	voteRepo := sqlite3.NewVoteRepository(app.db)
	notificationRepo := sqlite3.NewNotificationRepository(app.db)

	app.authzProvider, err = newAuthorizationProvider(ctx, app.db, app.cfg.AuthorizationPolicyFile)
	if err != nil {
		return fmt.Errorf("failed to create authorization provider: %w", err)
	}

	authzSvc, err := authorization.NewService(app.authzProvider)
	if err != nil {
		return fmt.Errorf("failed to create authorization service: %w", err)
	}

	authzClient := authorization.NewClient(authzSvc)

	app.authSvc = authentication.NewService(userRepo, sessionRepo, authzClient, clock)

	err = app.authSvc.LoadUsernameFilter(ctx, 10_000, 0.01)
	if err != nil {
		return fmt.Errorf("failed to load username filter: %w", err)
	}

	app.contentsBase = contents.NewService(postRepo, moduleRepo, clock)
	contentsSvc := contents.NewAuthorizationMiddleware(authzClient, app.contentsBase)

	app.votesBase = votes.NewService(voteRepo)

	discussBase := discuss.NewService(
		commentRepo,
		postRepo,
		discuss.NewGuard(clock, app.cfg.Location, app.cfg.CommentEditWindow),
	)

	notificationsBase := notifications.NewService(notificationRepo, app.authSvc, postRepo, clock)
	discussBase.AddCommentCreatedHook(notificationsBase)
	app.discussBase = discussBase

	rateLimit := web.RateLimitOptions{PerMinute: app.cfg.RateLimitPerMinute}

	if app.cfg.RedisURL != "" {
		app.rdb, err = newRedisClient(ctx, app.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}

		limiter := throttle.NewLimiter(app.rdb)
		rateLimit.Limiter = limiter

		discussBase.SetSpamGuard(throttle.NewSpamGuard(limiter, throttle.DefaultSpamRepeats, throttle.DefaultSpamWindow))
	}

	cookieStore := sessions.NewCookieStore([]byte(app.cfg.SessionKey))
	cookieStore.Options.HttpOnly = true
	cookieStore.Options.SameSite = http.SameSiteLaxMode
	cookieStore.Options.Secure = app.cfg.Server.TLS.Enabled

	app.handler, err = web.NewHandler(
		web.Services{
			Auth:          app.authSvc,
			Contents:      contentsSvc,
			Discuss:       discuss.NewAuthorizationMiddleware(authzClient, discussBase),
			Votes:         votes.NewAuthorizationMiddleware(authzClient, app.votesBase),
			Notifications: notifications.NewAuthorizationMiddleware(authzClient, notificationsBase),
			Search:        search.NewService(app.authSvc, contentsSvc),
		},
		cookieStore,
		app.cfg.SessionName,
		web.CSRFOptions{
			Enabled:        app.cfg.CSRFEnabled,
			AuthKey:        []byte(app.cfg.CSRFAuthKey),
			TrustedOrigins: app.cfg.CSRFTrustedOrigins,
			Secure:         app.cfg.Server.TLS.Enabled,
		},
		rateLimit,
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP handler: %w", err)
	}

	return nil
}

// Handler returns the HTTP handler of the app.
func (app *App) Handler() http.Handler {
	return app.handler
}

func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer app.close(ctx)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := app.server.Run(ctx, app.handler)
		if err != nil {
			return fmt.Errorf("failed to run server: %w", err)
		}

		return nil
	})

	if app.cfg.AuthorizationPolicyFile != "" {
		g.Go(func() error {
			err := app.authzProvider.WatchPolicyFile(ctx, app.cfg.AuthorizationPolicyFile)
			if err != nil {
				return fmt.Errorf("failed to watch authorization policy file: %w", err)
			}

			return nil
		})
	}

	g.Go(func() error {
		app.purgeSessions(ctx)

		return nil
	})

	err := g.Wait()
	if err != nil {
		return fmt.Errorf("failed to run app: %w", err)
	}

	return nil
}

func (app *App) purgeSessions(ctx context.Context) {
	if app.cfg.SessionPurgeInterval <= 0 {
		return
	}

	ticker := time.NewTicker(app.cfg.SessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := app.authSvc.PurgeExpiredSessions(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "failed to purge expired sessions", "error", err)

				continue
			}

			if deleted > 0 {
				slog.InfoContext(ctx, "purged expired sessions", "count", deleted)
			}
		}
	}
}

// Close releases the database and redis connections.
func (app *App) Close(ctx context.Context) {
	app.close(ctx)
}

func (app *App) close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	if app.rdb != nil {
		err := app.rdb.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close redis client", "error", err)
		}
	}

	if app.db != nil {
		err := app.db.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close database", "error", err)
		}
	}
}

func newRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	err = rdb.Ping(ctx).Err()
	if err != nil {
		slog.WarnContext(ctx, "redis is unreachable, throttling fails open until it recovers", "error", err)
	}

	return rdb, nil
}

func newAuthorizationProvider(ctx context.Context, db *sql.DB, policyFile string) (*casbin.AuthorizationProvider, error) {
	adapter, err := casbin.NewSQLAdapter(db, "sqlite3", "casbin_rule")
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization adapter: %w", err)
	}

	provider, err := casbin.NewAuthorizationProvider(adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization provider: %w", err)
	}

	policyContent, err := loadPolicyContent(policyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load authorization policy content: %w", err)
	}

	err = provider.AddPolicyFromCSV(ctx, policyContent)
	if err != nil {
		return nil, fmt.Errorf("failed to add authorization policy from csv: %w", err)
	}

	return provider, nil
}

func loadPolicyContent(policyFile string) (string, error) {
	if policyFile == "" {
		return defaultAuthorizationPolicyContent, nil
	}

	content, err := os.ReadFile(policyFile) // nolint:gosec
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("policy file %q does not exist: %w", policyFile, err)
		}

		return "", fmt.Errorf("failed to read policy file %q: %w", policyFile, err)
	}

	return string(content), nil
}

// Seed fills the database with fake data through the domain services,
// bypassing authorization checks.
func (app *App) Seed(ctx context.Context, opts seed.Options) (*seed.Summary, error) {
	defer app.close(ctx)

	seeder := seed.NewSeeder(app.authSvc, app.contentsBase, app.discussBase, app.votesBase, time.Now().UnixNano())

	summary, err := seeder.Run(ctx, opts)
	if err != nil {
		return summary, fmt.Errorf("failed to seed database: %w", err)
	}

	return summary, nil
}

// MigrateUp applies every pending migration to the configured database.
func MigrateUp(ctx context.Context, cfg *Config) error {
	return withDB(ctx, cfg, sqlite3.MigrateUp)
}

// MigrateDown reverts every migration of the configured database.
func MigrateDown(ctx context.Context, cfg *Config) error {
	return withDB(ctx, cfg, sqlite3.MigrateDown)
}

func withDB(ctx context.Context, cfg *Config, fn func(ctx context.Context, db *sql.DB) error) error {
	db, err := sqlite3.NewDB(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	defer func() {
		err := db.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close database", "error", err)
		}
	}()

	return fn(ctx, db)
}
