package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/config"
	"github.com/dmitrijs2005/authkeeper/internal/filex"
)

type App struct {
	config *config.Config
	api    client.Client
	db     *sql.DB
	reader *bufio.Reader
	out    io.Writer
	email  string
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := filex.EnsureParentDir(c.SessionDBPath); err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, c.SessionDBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing session database: %w", err)
	}

	api, err := client.NewGRPCClient(c.ServerEndpointAddr, client.NewMetadataTokenStore(db))
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{config: c, api: api, db: db, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func (a *App) isLoggedIn() bool {
	return a.api.LoggedIn()
}

func (a *App) getStatus() string {
	if a.isLoggedIn() && a.email != "" {
		return fmt.Sprintf("(%s) ", a.email)
	}
	return ""
}

// withTimeout bounds a single RPC by the configured request timeout.
func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config == nil || a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

// restore picks up a session saved by an earlier run.
func (a *App) restore(ctx context.Context) {
	email, err := a.api.Restore(ctx)
	if err != nil {
		if !errors.Is(err, client.ErrNotLoggedIn) {
			printlnFn("Could not restore session:", err.Error())
		}
		return
	}
	a.email = email
	printlnFn("Restored session for", email)
}

func (a *App) Run(ctx context.Context) {
	defer a.close()

	printlnFn("Welcome to authkeeper CLI (type 'help' for commands)")

	pingCtx, cancel := a.withTimeout(ctx)
	if err := a.api.Ping(pingCtx); err != nil {
		printlnFn("Server check failed:", err.Error())
	}
	cancel()

	a.restore(ctx)
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) close() {
	if err := a.api.Close(); err != nil {
		printlnFn("Error closing connection:", err.Error())
	}
	if a.db != nil {
		a.db.Close()
	}
}
