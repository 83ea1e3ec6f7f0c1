package client

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sitebox/sitebox/internal/client/config"
	"github.com/sitebox/sitebox/internal/client/engine"
	"github.com/sitebox/sitebox/internal/client/workspace"
	"github.com/sitebox/sitebox/internal/sitesdk"
)

// Client assembles the workspace, the SDK and the sync engine into one
// foreground process.
type Client struct {
	config *config.Config
	ws     *workspace.Workspace
	sdk    *sitesdk.SDK
	engine *engine.Engine
}

func New(cfg *config.Config) (*Client, error) {
	ws, err := workspace.New(cfg.SyncFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	sdk, err := sitesdk.New(cfg.ServerURL, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdk: %w", err)
	}

	return &Client{
		config: cfg,
		ws:     ws,
		sdk:    sdk,
		engine: engine.New(ws, sdk, engine.Options{}),
	}, nil
}

// Engine exposes the sync engine for status queries and event consumers.
func (c *Client) Engine() *engine.Engine {
	return c.engine
}

// Start locks the workspace, runs the engine and blocks until the context
// is cancelled.
func (c *Client) Start(ctx context.Context) error {
	slog.Info("sitebox client start", "user", c.config.Username, "dir", c.ws.Root, "server", c.sdk.BaseURL())

	if err := c.ws.Lock(); err != nil {
		return err
	}
	defer c.ws.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.logEvents(gctx)
		return nil
	})

	if err := c.engine.Start(gctx); err != nil {
		return fmt.Errorf("failed to start sync engine: %w", err)
	}

	<-gctx.Done()
	slog.Info("shutting down")

	c.engine.Stop()
	c.sdk.Close()
	g.Wait()

	slog.Info("sitebox client stop")
	return nil
}

// logEvents is the default event consumer: it narrates the engine's stream
// into the log until a UI attaches in its place.
func (c *Client) logEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.engine.Events():
			if !ok {
				return
			}
			logEvent(ev)
		}
	}
}

func logEvent(ev *engine.Event) {
	switch data := ev.Data.(type) {
	case engine.SyncStart:
		slog.Info("sync started", "type", data.Type)
	case engine.SyncComplete:
		slog.Info("sync complete",
			"type", data.Type,
			"downloaded", data.Stats.FilesDownloaded,
			"uploaded", data.Stats.FilesUploaded,
			"protected", data.Stats.FilesProtected,
		)
	case engine.FileSynced:
		slog.Info("file synced", "file", data.File, "action", data.Action)
	case engine.SyncConflict:
		slog.Warn("name conflict", "file", data.File, "suggestions", data.Suggestions)
	case engine.SyncRetry:
		slog.Warn("will retry", "file", data.File, "attempt", data.Attempt, "in", data.NextRetryIn)
	case engine.SyncFailed:
		slog.Error("file failed for this session", "file", data.File, "attempts", data.Attempts)
	case engine.SyncError:
		slog.Error("sync error", "file", data.File, "kind", data.Kind, "priority", data.Priority, "error", data.Error)
	case engine.BackupCreated:
		slog.Debug("backup created", "file", data.Original, "backup", data.Backup)
	case engine.SyncStats:
		slog.Debug("stats", "downloaded", data.Stats.FilesDownloaded, "uploaded", data.Stats.FilesUploaded)
	}
}
