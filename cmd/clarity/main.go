// Clarity daemon: syncs bank data into a local mirror and serves the API.
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/clarityfin/clarity/internal/api"
	"github.com/clarityfin/clarity/internal/config"
	"github.com/clarityfin/clarity/internal/ingest"
	"github.com/clarityfin/clarity/internal/llm"
	"github.com/clarityfin/clarity/internal/logging"
	"github.com/clarityfin/clarity/internal/plaid"
	"github.com/clarityfin/clarity/internal/scheduler"
	"github.com/clarityfin/clarity/internal/storage"
	"github.com/clarityfin/clarity/internal/vault"
)

var (
	configPath string
	dataDir    string
	port       int
)

func main() {
	// Optional .env for local development; ignore if absent.
	godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "clarity",
		Short: "Clarity - personal finance daemon",
		RunE:  runDaemon,
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")
	rootCmd.Flags().IntVar(&port, "port", 0, "HTTP server port (overrides config)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
	logging.Info("starting clarity daemon")

	db, err := storage.Open(storage.Config{Path: cfg.DatabasePath()})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	v, err := openVault(db)
	if err != nil {
		return fmt.Errorf("open vault: %w", err)
	}

	plaidCfg := plaid.ConfigFromEnv()
	plaidCfg.ClientID = cfg.Plaid.ClientID
	plaidCfg.Secret = cfg.Plaid.Secret
	if cfg.Plaid.Environment == "production" {
		plaidCfg.Environment = plaid.EnvProduction
	}
	plaidClient := plaid.New(plaidCfg)
	if !plaidClient.IsConfigured() {
		logging.Warn("PLAID_CLIENT_ID / PLAID_SECRET not set, bank linking disabled")
	}

	llmClient := llm.NewClient(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
	})
	if !llmClient.IsConfigured() {
		logging.Warn("LLM API key not set, advice endpoint disabled")
	}

	ingestSvc := ingest.NewService(plaidClient, v, db)

	server := api.New(api.Config{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		DB:      db,
		Linker:  plaidClient,
		Ingest:  ingestSvc,
		Advisor: llm.NewAdvisor(llmClient),
	})

	// Push mirror changes to connected UI clients.
	ingestSvc.OnEvent = func(e ingest.Event) {
		server.Broadcast(e.Type, e)
	}

	sched := scheduler.New()
	if cfg.Sync.Enabled && plaidClient.IsConfigured() {
		interval := time.Duration(cfg.Sync.IntervalMinutes) * time.Minute
		if interval <= 0 {
			interval = 6 * time.Hour
		}
		err := sched.Register(&scheduler.Task{
			ID:         "bank-sync",
			Name:       "Bank sync",
			Interval:   interval,
			RunOnStart: true,
			Timeout:    10 * time.Minute,
			Handler: func(ctx context.Context) error {
				_, err := ingestSvc.SyncUser(ctx, "local")
				return err
			},
		})
		if err != nil {
			return fmt.Errorf("register sync task: %w", err)
		}
		sched.Start()
		logging.Info("background sync every %s", interval)
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("API server listening on http://%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-sigCh:
	}

	logging.Info("shutting down")
	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Stop(ctx)
}

// openVault derives the token vault from CLARITY_PASSPHRASE and the salt
// persisted alongside the database.
func openVault(db *storage.DB) (*vault.Vault, error) {
	passphrase := os.Getenv("CLARITY_PASSPHRASE")
	if passphrase == "" {
		logging.Warn("CLARITY_PASSPHRASE not set, using built-in default")
		passphrase = "clarity-local-default"
	}

	settings := storage.NewSettingsStore(db)

	var salt []byte
	encoded, err := settings.Get("vault_salt")
	switch err {
	case nil:
		salt, err = base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode stored salt: %w", err)
		}
	case storage.ErrNotFound:
		salt, err = vault.NewSalt()
		if err != nil {
			return nil, err
		}
		if err := settings.Set("vault_salt", base64.StdEncoding.EncodeToString(salt)); err != nil {
			return nil, fmt.Errorf("persist salt: %w", err)
		}
	default:
		return nil, err
	}

	return vault.Open(passphrase, salt)
}
