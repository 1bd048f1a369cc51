package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/cache"
	"github.com/desertthunder/ytsync/internal/repositories"
	"github.com/desertthunder/ytsync/internal/services"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/desertthunder/ytsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Configuration, catalog clients and the database are created on first use so commands that
// only touch the config never need credentials.
type Runner struct {
	config     *shared.Config
	configPath string
	source     services.SourceCatalog
	dest       services.DestinationCatalog
	db         *sql.DB
	logger     *log.Logger
	output     io.Writer
	logCloser  io.Closer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Source     services.SourceCatalog
	Dest       services.DestinationCatalog
	DB         *sql.DB
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		source:     opts.Source,
		dest:       opts.Dest,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, syncCommand, mappingsCommand, cacheCommand, runsCommand, authCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if r.configPath == "" {
		r.configPath = cmd.String("config")
	}
	return ctx, nil
}

// Close releases the database and log file.
func (r *Runner) Close() {
	if r.db != nil {
		r.db.Close()
		r.db = nil
	}
	if r.logCloser != nil {
		r.logCloser.Close()
		r.logCloser = nil
	}
}

// loadConfig reads the config file once. A missing file is reported as [shared.ErrMissingConfig].
func (r *Runner) loadConfig() (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}
	if r.configPath == "" {
		r.configPath = "config.toml"
	}

	if _, err := os.Stat(r.configPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s (run 'ytsync setup database' to create one)", shared.ErrMissingConfig, r.configPath)
	}

	cfg, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return nil, err
	}
	r.config = cfg

	if cfg.Sync.LogFile != "" && r.logCloser == nil {
		w, closer, err := shared.OpenLogFile(cfg.Sync.LogFile, os.Stderr)
		if err != nil {
			r.logger.Warn("log file disabled", "path", cfg.Sync.LogFile, "error", err)
		} else {
			r.logger.SetOutput(w)
			r.logCloser = closer
		}
	}

	r.logger.Debug("loaded config", "path", r.configPath, "mappings", len(cfg.Mappings))
	return cfg, nil
}

func (r *Runner) saveConfig() error {
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return err
	}
	r.logger.Info("saved config", "path", r.configPath, "backup", shared.BackupPath(r.configPath))
	return nil
}

// sourceCatalog returns the Spotify client, authenticated with the configured refresh token.
func (r *Runner) sourceCatalog(ctx context.Context) (services.SourceCatalog, error) {
	if r.source != nil {
		return r.source, nil
	}
	cfg, err := r.loadConfig()
	if err != nil {
		return nil, err
	}

	svc, err := services.NewSpotifyService(cfg.Credentials.Spotify,
		services.WithTimeout(cfg.Sync.RequestTimeout.Duration),
		services.WithLogger(shared.WithLogger(r.logger, "service", "spotify")),
	)
	if err != nil {
		return nil, err
	}
	if err := svc.Authenticate(ctx, map[string]string{"refresh_token": cfg.Credentials.Spotify.RefreshToken}); err != nil {
		return nil, fmt.Errorf("spotify: %w", err)
	}

	r.source = svc
	return svc, nil
}

// destCatalog returns the YouTube Music proxy client.
func (r *Runner) destCatalog(ctx context.Context) (services.DestinationCatalog, error) {
	if r.dest != nil {
		return r.dest, nil
	}
	cfg, err := r.loadConfig()
	if err != nil {
		return nil, err
	}

	svc := services.NewYouTubeService(cfg.Credentials.YouTube,
		services.WithTimeout(cfg.Sync.RequestTimeout.Duration),
		services.WithLogger(shared.WithLogger(r.logger, "service", "youtube")),
	)
	if err := svc.Authenticate(ctx, map[string]string{"auth_file": cfg.Credentials.YouTube.HeadersPath}); err != nil {
		return nil, fmt.Errorf("youtube: %w", err)
	}

	r.dest = svc
	return svc, nil
}

// database opens and migrates the configured database once.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	cfg, err := r.loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := shared.OpenDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

// matchCache loads the persisted match cache into memory.
func (r *Runner) matchCache(ctx context.Context) (*cache.MatchCache, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}

	mc := cache.New(repositories.NewMatchRepository(db), shared.WithLogger(r.logger, "component", "cache"))
	if err := mc.Load(ctx); err != nil {
		return nil, err
	}
	return mc, nil
}

// engine wires the catalogs, match cache and run history into a [tasks.SyncEngine].
func (r *Runner) engine(ctx context.Context) (*tasks.SyncEngine, error) {
	cfg, err := r.loadConfig()
	if err != nil {
		return nil, err
	}
	source, err := r.sourceCatalog(ctx)
	if err != nil {
		return nil, err
	}
	dest, err := r.destCatalog(ctx)
	if err != nil {
		return nil, err
	}
	mc, err := r.matchCache(ctx)
	if err != nil {
		return nil, err
	}

	runs := repositories.NewSyncRunRepository(r.db)
	return tasks.NewSyncEngine(cfg, source, dest, mc, runs, r.logger), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
