/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the period workflow engine server. Handles
  configuration, dependency injection, and graceful shutdown.

COMMANDS:
  serve         Start the HTTP server (the default when omitted)
  migrate       Print the current schema migration version
  config init   Write a default config file

STARTUP SEQUENCE:
  1. Load TOML config (built-in defaults when the file is absent)
  2. Open SQLite store, apply pending migrations
  3. Seed system limits from config on first start
  4. Build workflow engine, handler and router
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with defaults (./data/periods.db, port 8080)
  ./server serve

  # Run with a config file
  ./server serve --config=./periods.toml

  # Run fully in memory
  ./server serve --db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration format
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitework/period-engine/api"
	"github.com/sitework/period-engine/config"
	"github.com/sitework/period-engine/period"
	"github.com/sitework/period-engine/store/sqlite"
	"github.com/sitework/period-engine/store/sqlite/migrations"
)

var (
	configPath string
	dbOverride string
	portFlag   int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Time-period workflow and integrity engine",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")

	serveCmd.Flags().StringVar(&dbOverride, "db", "", "SQLite database path override (\":memory:\" for in-memory)")
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "HTTP port override")

	rootCmd.AddCommand(serveCmd, migrateCmd, configCmd)
	configCmd.AddCommand(configInitCmd)
}

// loadConfig layers the optional file over built-in defaults, then flags
// over both.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.ReadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if dbOverride != "" {
		cfg.Database.Path = dbOverride
	}
	if portFlag != 0 {
		cfg.Server.Port = portFlag
	}
	return cfg, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		// Seed the shared ceilings on first start. An existing row wins so
		// admin changes made through the API survive restarts.
		ctx := context.Background()
		if err := seedLimits(ctx, store, cfg.Limits); err != nil {
			return err
		}

		wf := period.NewWorkflow(store)
		handler := api.NewHandler(wf)
		router := api.NewRouter(handler, cfg.Server.CORSOrigins)

		server := &http.Server{
			Addr:         cfg.Addr(),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			log.Printf("Server starting on http://localhost%s", cfg.Addr())
			log.Printf("API available at http://localhost%s/api", cfg.Addr())
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server failed: %v", err)
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}

		log.Println("Server stopped")
		return nil
	},
}

// seedLimits writes config values only when no limits row exists yet.
func seedLimits(ctx context.Context, store *sqlite.Store, cfg config.LimitsConfig) error {
	if cfg.MaxBreaks == 0 && cfg.MaxUsedEquipment == 0 && cfg.MaxMobilisedEquipment == 0 {
		return nil
	}
	current, err := store.GetLimits(ctx)
	if err != nil {
		return err
	}
	if current != period.DefaultLimits() {
		return nil
	}
	return store.SaveLimits(ctx, period.SystemLimits{
		MaxBreaks:             cfg.MaxBreaks,
		MaxUsedEquipment:      cfg.MaxUsedEquipment,
		MaxMobilisedEquipment: cfg.MaxMobilisedEquipment,
	})
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Print the current schema migration version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		version, dirty, err := migrations.Version(store.DB())
		if err != nil {
			return err
		}
		if dirty {
			log.Printf("schema version: %d (dirty)", version)
		} else {
			log.Printf("schema version: %d", version)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default config file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "./periods.toml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			log.Printf("config file already exists at %s", path)
			return nil
		}

		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := config.Write(f, config.Default()); err != nil {
			return err
		}
		log.Printf("wrote default config to %s", path)
		return nil
	},
}
