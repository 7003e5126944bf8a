// Package server wires configuration, storage, the session service, the
// expired token sweeper and the gRPC transport into a runnable application.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/mailer"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"

	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// seams for tests
var (
	openDB                 = sql.Open
	logOutput    io.Writer = os.Stdout
	newRepoManager         = func() repomanager.RepositoryManager { return repomanager.NewPostgresRepositoryManager() }
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	sessions *services.SessionService
	sweeper  *services.ExpiredTokenSweeper
	grpc     *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogLevel, c.LogFormat, logOutput)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := openDB("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := build(ctx, c, logger, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

func build(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB) (*App, error) {
	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	codec, err := auth.NewCodec(auth.CodecConfig{
		AccessSecret:  []byte(c.AccessSecret),
		RefreshSecret: []byte(c.RefreshSecret),
		AccessTTL:     c.AccessTokenValidityDuration,
		RefreshTTL:    c.RefreshTokenValidityDuration,
	}, cryptox.NewArgon2idHasher(cryptox.TokenParams()))
	if err != nil {
		return nil, fmt.Errorf("token codec error: %w", err)
	}

	dispatcher, err := newDispatcher(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("mailer init error: %w", err)
	}

	ledger := services.NewRefreshLedger(rm, codec, logger)
	sessions := services.NewSessionService(db, rm, cryptox.NewArgon2idHasher(cryptox.DefaultParams()), codec, ledger, dispatcher, c, logger)

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		sessions: sessions,
		sweeper:  services.NewExpiredTokenSweeper(db, ledger, c.PurgeInterval, logger),
		grpc:     gs.NewGRPCServer(c.EndpointAddrGRPC, logger, sessions, codec, c.IsDevelopment()),
	}, nil
}

func newDispatcher(ctx context.Context, c *config.Config, logger logging.Logger) (mailer.Dispatcher, error) {
	switch c.MailSender {
	case config.MailSenderSES:
		return mailer.NewSESDispatcher(ctx, mailer.SESConfig{
			Region:          c.SESRegion,
			Endpoint:        c.SESEndpoint,
			AccessKeyID:     c.SESAccessKeyID,
			SecretAccessKey: c.SESSecretAccessKey,
			FromAddress:     c.MailFromAddress,
			FromName:        c.MailFromName,
		}, logger)
	case config.MailSenderLog, "":
		return mailer.NewLogDispatcher(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail sender %q", c.MailSender)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or ctx is done.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
