// Package commands implements the bearvision subcommands.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aiokaizen/bear-vision/internal/cli/config"
	"github.com/aiokaizen/bear-vision/internal/lava/i18n"
	"github.com/aiokaizen/bear-vision/internal/lava/resolver"
	"github.com/aiokaizen/bear-vision/internal/lava/site"
	"github.com/aiokaizen/bear-vision/internal/server"
	"github.com/aiokaizen/bear-vision/internal/storage"
	ti "github.com/aiokaizen/bear-vision/internal/tradinginsights"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Store  *storage.Store
}

// NewCommandContext opens the configured store and applies pending
// migrations. The cleanup function must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	ctx := cmd.Context()
	cfg, err := config.GetConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	logger := config.GetLogger(ctx)

	store, err := storage.Open(ctx, storage.Config{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Logger: logger,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}
	return &CommandContext{Cfg: cfg, Logger: logger, Store: store}, cleanup, nil
}

// NewSite builds the site with every app registered and the configured menu.
func (cc *CommandContext) NewSite() (*site.Site, error) {
	res := resolver.New(cc.Logger)
	ti.Register(res)

	s, err := site.New(site.Config{
		Store:    cc.Store,
		Sessions: server.NewSessionStore(cc.Cfg.Server.SessionSecret, cc.Cfg.Server.SecureCookies, cc.Logger),
		Resolver: res,
		Bundle:   i18n.Default(),
		Locale:   cc.Cfg.Locale,
		PageSize: cc.Cfg.Server.PageSize,
		Logger:   cc.Logger,
	})
	if err != nil {
		return nil, err
	}
	if err := s.Register(ti.Descriptors()...); err != nil {
		return nil, err
	}
	if err := s.SetMenuItems(cc.Cfg.MenuItems); err != nil {
		return nil, fmt.Errorf("invalid menu_items: %w", err)
	}
	return s, nil
}
