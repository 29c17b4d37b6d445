// Package app initializes and runs the main application service.
// It configures logging, storage, authentication, and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patric-chuzhbe/linkclicks/internal/auth"
	"github.com/patric-chuzhbe/linkclicks/internal/config"
	"github.com/patric-chuzhbe/linkclicks/internal/db/memorystorage"
	"github.com/patric-chuzhbe/linkclicks/internal/db/postgresdb"
	"github.com/patric-chuzhbe/linkclicks/internal/ipchecker"
	"github.com/patric-chuzhbe/linkclicks/internal/logger"
	"github.com/patric-chuzhbe/linkclicks/internal/models"
	"github.com/patric-chuzhbe/linkclicks/internal/router"
	"github.com/patric-chuzhbe/linkclicks/internal/service"
	"github.com/patric-chuzhbe/linkclicks/internal/shortcode"
)

const shutdownTimeout = 10 * time.Second

type userKeeper interface {
	CreateUser(ctx context.Context, usr *models.User) error
	GetUserByID(ctx context.Context, userID int64) (*models.User, bool, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error)
}

type linkKeeper interface {
	InsertShortLink(ctx context.Context, link *models.ShortLink) error
	FindShortLinkByCode(ctx context.Context, code string) (*models.ShortLink, bool, error)
	FindActiveShortLinkByCode(ctx context.Context, code string, now time.Time) (*models.ShortLink, bool, error)
	FindShortLinkByID(ctx context.Context, linkID int64) (*models.ShortLink, bool, error)
	GetOwnerShortLinks(ctx context.Context, ownerID int64, now time.Time) ([]models.ShortLinkWithClicks, error)
	DeleteShortLink(ctx context.Context, linkID int64) error
}

type clickKeeper interface {
	InsertClick(ctx context.Context, click *models.Click) error
	CountClicksByCode(ctx context.Context, code string) (int64, error)
}

type statsKeeper interface {
	GetNumberOfShortLinks(ctx context.Context) (int64, error)
	GetNumberOfUsers(ctx context.Context) (int64, error)
	GetNumberOfClicks(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	linkKeeper
	clickKeeper
	statsKeeper
	pinger
	Close() error
}

// App encapsulates the configuration, HTTP handler and storage backend
// needed to run the link shortener service.
type App struct {
	cfg         *config.Config
	db          storage
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - wiring the services, the authenticator and the router
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	location, err := app.cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("in internal/app/app.go/New(): error while `app.cfg.Location()` calling: %w", err)
	}

	checker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorage(app.cfg)
	if err != nil {
		return nil, err
	}

	app.httpHandler = router.New(
		service.NewLinkService(app.db, shortcode.New(), app.cfg.ShortURLBase(), location),
		service.NewClickRecorder(app.db),
		service.NewUserService(app.db),
		service.NewStatsService(app.db),
		auth.New(app.db, []byte(app.cfg.JWTSecret), app.cfg.TokenTTL),
		checker,
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr(), "ShortURLBase", a.cfg.ShortURLBase())

	server := &http.Server{
		Addr:    a.cfg.RunAddr(),
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing the storage and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		if errors.Is(err, http.ErrServerClosed) {
			return a.db.Close()
		}

		return errors.Join(fmt.Errorf("server error: %w", err), a.db.Close())
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getStorage(cfg *config.Config) (storage, error) {
	if cfg.InMemoryStorage {
		logger.Log.Warnln("using the in-memory storage, data will be lost on restart")
		return memorystorage.New()
	}

	return postgresdb.New(
		context.Background(),
		cfg.DSN(),
		cfg.DBConnectionTimeout,
	)
}
