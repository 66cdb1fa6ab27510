// Package console wires the pieces one `b` invocation needs: the Backdrop
// root, its project config, the site registry and the runtime probes.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/supreme-majesty/backdrop-console/pkg/adapters"
	"github.com/supreme-majesty/backdrop-console/pkg/adapters/system"
	"github.com/supreme-majesty/backdrop-console/pkg/events"
	"github.com/supreme-majesty/backdrop-console/pkg/project"
	"github.com/supreme-majesty/backdrop-console/pkg/services"
	"github.com/supreme-majesty/backdrop-console/pkg/sites"
	"github.com/supreme-majesty/backdrop-console/pkg/status"
)

// DatabaseProber checks database connectivity for `status`.
type DatabaseProber interface {
	Probe(ctx context.Context, config services.ConnectionConfig) services.ProbeResult
}

// Options configures Open. Zero values pick the defaults.
type Options struct {
	Root     string // explicit Backdrop root; detected from WorkDir when empty
	WorkDir  string // defaults to the process working directory
	Logger   *slog.Logger
	Events   *events.Bus
	Adapter  adapters.SystemAdapter
	Database DatabaseProber
}

// Console is the per-invocation context. It is created once and passed
// explicitly; nothing in it changes after Open returns.
type Console struct {
	Root     string
	Config   *project.Config
	Registry *sites.Registry
	Events   *events.Bus
	Adapter  adapters.SystemAdapter
	Database DatabaseProber
	Logs     *services.LogWatcher

	logger *slog.Logger
}

// ErrNoErrorLog is returned by Follow when no PHP error log is configured.
var ErrNoErrorLog = errors.New("no PHP error log configured (set error_log in .b.yaml or B_ERROR_LOG)")

// Open locates the installation and loads its registry.
func Open(ctx context.Context, opts Options) (*Console, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	bus := opts.Events
	if bus == nil {
		bus = events.NewBus()
	}

	// 1. Root
	root, err := resolveRoot(opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("backdrop root", "path", root)

	// 2. Project config
	cfg, err := project.Detect(root)
	if err != nil {
		return nil, err
	}

	// 3. Registry
	registry, err := sites.Load(root, cfg.Sites)
	if err != nil {
		return nil, fmt.Errorf("failed to load site registry: %w", err)
	}
	bus.Publish(events.Event{Type: events.RegistryLoaded, Payload: registry})

	adapter := opts.Adapter
	if adapter == nil {
		adapter = system.NewAdapter()
	}
	prober := opts.Database
	if prober == nil {
		prober = services.NewDatabaseService()
	}

	return &Console{
		Root:     root,
		Config:   cfg,
		Registry: registry,
		Events:   bus,
		Adapter:  adapter,
		Database: prober,
		Logs:     services.NewLogWatcher(bus),
		logger:   logger,
	}, nil
}

func resolveRoot(opts Options) (string, error) {
	if opts.Root != "" {
		root, err := filepath.Abs(opts.Root)
		if err != nil {
			return "", err
		}
		if !project.IsRoot(root) {
			return "", fmt.Errorf("%w at %s", project.ErrRootNotFound, root)
		}
		return root, nil
	}

	wd := opts.WorkDir
	if wd == "" {
		var err error
		if wd, err = os.Getwd(); err != nil {
			return "", err
		}
	}
	return project.FindRoot(wd)
}

// Select resolves the --site selector.
func (c *Console) Select(selector string) (sites.Selection, error) {
	sel, err := c.Registry.Resolve(selector)
	if err != nil {
		return sites.Selection{}, err
	}
	if sel.Selected() {
		c.logger.Debug("site resolved", "selector", selector, "directory", sel.Site.Dir)
	}
	c.Events.Publish(events.Event{Type: events.SiteResolved, Payload: sel})
	return sel, nil
}

// SettingsFile returns the settings.php that applies to the selection, or ""
// when none does (an unselected multisite).
func (c *Console) SettingsFile(sel sites.Selection) string {
	if sel.Selected() {
		return sel.Site.SettingsFile
	}
	if c.Registry.Multisite() {
		return ""
	}
	return filepath.Join(c.Root, "settings.php")
}

// Status collects everything `b status` shows for the selection.
func (c *Console) Status(ctx context.Context, sel sites.Selection) (*status.Report, error) {
	in := status.Input{
		Version:      project.Version(c.Root),
		Root:         c.Root,
		Multisite:    c.Registry.Multisite(),
		Selection:    sel,
		SettingsFile: c.SettingsFile(sel),
		PHPVersion:   c.Adapter.PHPVersion(ctx),
	}
	if ws, ok := c.Adapter.WebServer(ctx); ok {
		in.WebServer = ws
	}

	if in.SettingsFile != "" {
		db, err := c.databaseConfig(in.SettingsFile)
		if err != nil {
			// A broken settings.php is reported, not fatal.
			c.logger.Warn("could not read settings", "file", in.SettingsFile, "error", err)
		}
		in.Database = db
		probe := c.Database.Probe(ctx, db)
		c.Events.Publish(events.Event{Type: events.DatabaseProbed, Payload: probe})
		in.Probe = &probe
	}

	report := status.Build(in)
	c.Events.Publish(events.Event{Type: events.StatusCollected, Payload: report})
	return report, nil
}

func (c *Console) databaseConfig(settingsFile string) (services.ConnectionConfig, error) {
	override := services.ConnectionConfig{
		Host:     c.Config.Database.Host,
		Port:     c.Config.Database.Port,
		User:     c.Config.Database.User,
		Password: c.Config.Database.Password,
		Name:     c.Config.Database.Name,
	}
	settings, err := services.ParseSettings(settingsFile)
	if err != nil {
		return override, err
	}
	return settings.Database.Merge(override), nil
}

// ErrorLog returns the configured PHP error log path.
func (c *Console) ErrorLog() (string, error) {
	if c.Config.ErrorLog == "" {
		return "", ErrNoErrorLog
	}
	return c.Config.ErrorLog, nil
}

// Tail returns the last n lines of the error log.
func (c *Console) Tail(sel sites.Selection, n int) ([]services.LogEntryData, error) {
	path, err := c.ErrorLog()
	if err != nil {
		return nil, err
	}
	return c.Logs.LastLines(sel.Dir(), path, n)
}

// Follow streams the error log until ctx is cancelled. Entries arrive on the
// event bus as events.LogEntry.
func (c *Console) Follow(ctx context.Context, sel sites.Selection) error {
	path, err := c.ErrorLog()
	if err != nil {
		return err
	}
	c.logger.Debug("following error log", "path", path)
	return c.Logs.Follow(ctx, sel.Dir(), path)
}
