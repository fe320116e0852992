// filepath: internal/cli/root.go
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sqlgrid/internal/config"
	"sqlgrid/internal/db"
	"sqlgrid/internal/dispatch"
	"sqlgrid/internal/grid"
	"sqlgrid/internal/httpserver"
	"sqlgrid/internal/logging"
	"sqlgrid/internal/render"
	"sqlgrid/internal/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version info
	Version = "1.0.0"

	// Global config object populated by flags/env/file
	cfg *config.Config

	// Hooks is the process-wide hook registry. Programs embedding the server
	// register their callbacks here before calling Execute.
	Hooks = grid.NewHookRegistry()

	// Flags
	cfgFile  string
	logLevel string
	port     int
	dbDriver string
	dbDSN    string
	secret   string
)

// RootCmd represents the base command when called without any subcommands.
// It starts the HTTP server.
var RootCmd = &cobra.Command{
	Use:   "sqlgrid",
	Short: "Editable SQL-backed data grids over HTTP",
	Long:  `Serves configurable, editable HTML data grids bound to database tables, synchronized through JSON action requests.`,
	// PersistentPreRunE loads the configuration before any command runs.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config_path", "config.toml", "Path to the configuration file. (Env: SQLGRID_CONFIG_PATH)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Logging level (debug, info, warn, error). (Env: SQLGRID_LOG_LEVEL)")
	RootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "Database driver, 'sqlite' or 'postgres'. (Env: SQLGRID_DB_DRIVER)")
	RootCmd.PersistentFlags().StringVar(&dbDSN, "db-dsn", "", "Database DSN or file path. (Env: SQLGRID_DB_DSN)")

	// Server-specific flags
	RootCmd.Flags().IntVar(&port, "port", 0, "Port for the HTTP server. (Env: SQLGRID_PORT)")
	RootCmd.Flags().StringVar(&secret, "secret", "", "Secret key for signing grid config tokens. (Env: SQLGRID_SECRET)")
}

// initializeConfig loads and overrides configuration values.
func initializeConfig(cmd *cobra.Command) error {
	// A .env file is optional; ignore a missing one.
	_ = godotenv.Load()

	env := viper.New()
	env.SetEnvPrefix("SQLGRID")
	env.AutomaticEnv()

	if v := env.GetString("CONFIG_PATH"); v != "" && cfgFile == "config.toml" {
		cfgFile = v
	}

	var err error
	cfg, err = config.LoadConfig(cfgFile)
	if err != nil {
		if os.IsNotExist(err) {
			// Rely on defaults and flags when no config file exists yet.
			cfg = &config.Config{}
		} else {
			return fmt.Errorf("failed to load configuration from %s: %w", cfgFile, err)
		}
	}

	applyOverrides(cfg, env)

	if err := cfg.ParseAndValidate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logging.Init(cfg.Logging.Level)
	return nil
}

// applyOverrides layers environment variables and then CLI flags over the
// file-based configuration. Flags take precedence.
func applyOverrides(c *config.Config, env *viper.Viper) {
	// --- 1. Environment Variables ---
	if v := env.GetInt("PORT"); v != 0 {
		c.Server.Port = v
	}
	if v := env.GetString("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := env.GetString("DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := env.GetString("DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := env.GetString("SECRET"); v != "" {
		c.Auth.Secret = v
	}

	// --- 2. CLI Flags (Take precedence) ---
	if port != 0 {
		c.Server.Port = port
	}
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if dbDriver != "" {
		c.Database.Driver = dbDriver
	}
	if dbDSN != "" {
		c.Database.DSN = dbDSN
	}
	if secret != "" {
		c.Auth.Secret = secret
	}
}

// buildGrids turns the declarative [grids] config sections into validated
// grid definitions, keyed by name.
func buildGrids(c *config.Config) (map[string]*grid.Config, error) {
	grids := make(map[string]*grid.Config, len(c.Grids))
	for _, g := range c.Grids {
		name := g.Name
		if name == "" {
			name = g.Table
		}
		if _, exists := grids[name]; exists {
			return nil, fmt.Errorf("duplicate grid name: %s", name)
		}

		b := grid.New(g.Table)
		if g.PrimaryKey != "" {
			b.PrimaryKey(g.PrimaryKey)
		}
		for _, col := range g.Columns {
			title := g.Titles[col]
			if title == "" {
				title = col
			}
			b.Column(col, title)
		}
		if len(g.Searchable) > 0 {
			b.Searchable(g.Searchable...)
		}
		if len(g.Fields) > 0 {
			b.Fields(g.Fields...)
		}
		if len(g.Required) > 0 {
			b.Require(g.Required...)
		}
		if g.PageSize != 0 {
			b.PageSize(g.PageSize)
		}
		if g.OrderBy != "" {
			b.OrderBy(g.OrderBy, g.OrderDir)
		}
		if len(g.Disable) > 0 {
			b.Disable(g.Disable...)
		}
		if len(g.SumColumns) > 0 {
			b.Sum(g.SumColumns...)
		}
		for _, rel := range g.Relations {
			if rel.OrderBy != "" {
				b.RelationFiltered(rel.Field, rel.Table, rel.Key, rel.Label, nil, rel.OrderBy, "")
			} else {
				b.Relation(rel.Field, rel.Table, rel.Key, rel.Label)
			}
		}

		built, err := b.Build()
		if err != nil {
			return nil, fmt.Errorf("grid '%s': %w", name, err)
		}
		grids[name] = built
	}
	return grids, nil
}

// runServer contains the logic to start the HTTP server with graceful shutdown.
func runServer() error {
	// The signing secret is mandatory; generate and persist one on first run.
	if cfg.Auth.Secret == "" {
		logging.Log.Info("Generating new random signing secret...")
		newSecret, err := grid.GenerateSecret()
		if err != nil {
			return fmt.Errorf("failed to generate signing secret: %w", err)
		}
		cfg.Auth.Secret = newSecret
		if err := config.SaveConfig(cfgFile, cfg); err != nil {
			logging.Log.Warnf("Failed to save new signing secret to %s: %v", cfgFile, err)
		} else {
			logging.Log.Infof("New signing secret saved to %s.", cfgFile)
		}
	}

	conn, err := db.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	grids, err := buildGrids(cfg)
	if err != nil {
		return fmt.Errorf("invalid grid configuration: %w", err)
	}
	logging.Log.Infof("Registered %d grid(s) from configuration", len(grids))

	store, err := storage.NewStore(cfg.Uploads.Dir)
	if err != nil {
		return fmt.Errorf("failed to initialize upload storage: %w", err)
	}

	renderer, err := render.New()
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	dispatcher := dispatch.NewDispatcher(conn, cfg.Auth.Secret, Hooks, store, cfg.MaxUploadBytes)
	h := httpserver.NewHandlers(grids, dispatcher, renderer, cfg)
	r := httpserver.SetupRouter(h)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: r,
	}

	// --- Graceful Shutdown Setup ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logging.Log.Infof("Server starting on %s (Max Upload: %s)", serverAddr, cfg.Uploads.MaxSize)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-stop
	logging.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logging.Log.Info("Server stopped.")
	return nil
}
