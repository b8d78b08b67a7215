package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/rolohq/rolo/internal/api"
	"github.com/rolohq/rolo/internal/assist"
	"github.com/rolohq/rolo/internal/config"
	"github.com/rolohq/rolo/internal/provider"
	"github.com/rolohq/rolo/internal/storage"
	"github.com/rolohq/rolo/internal/syncer"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the rolo daemon (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running rolo daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show rolo daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "rolo.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// unauthenticatedSyncer stands in for the real syncer until "rolo auth"
// has been run. Every sync attempt reports the auth error.
type unauthenticatedSyncer struct {
	err error
}

func (u *unauthenticatedSyncer) SyncResource(ctx context.Context, resource string) error {
	return u.err
}

func (u *unauthenticatedSyncer) SyncAll(ctx context.Context) map[string]error {
	results := make(map[string]error, len(storage.Resources))
	for _, r := range storage.Resources {
		results[r] = u.err
	}
	return results
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "rolo version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	apiToken, err := config.APIToken(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Refuse to start a second instance.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("rolo is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("rolo is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Build the provider-backed syncer when a token is on file; otherwise
	// the daemon still serves local CRM data and sync requests fail with
	// the auth error until "rolo auth" is run.
	var syncRunner api.SyncRunner
	tok, err := provider.LoadToken(store)
	if err != nil {
		slog.Warn("no valid provider token, sync disabled until auth", "error", err)
		syncRunner = &unauthenticatedSyncer{err: fmt.Errorf("not authenticated, run \"rolo auth\": %w", err)}
	} else {
		oauthCfg := provider.OAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret)
		client, err := provider.NewClient(ctx, oauthCfg, tok, logger)
		if err != nil {
			return fmt.Errorf("creating provider client: %w", err)
		}
		client.SetCalendarID(cfg.Google.CalendarID)
		syncRunner = syncer.New(client, store)
	}

	var assistClient api.AssistClient
	if cfg.Assist.APIKey != "" {
		if cfg.Assist.BaseURL != "" {
			assistClient = assist.NewClientWithBaseURL(cfg.Assist.APIKey, cfg.Assist.BaseURL)
		} else {
			assistClient = assist.NewClient(cfg.Assist.APIKey)
		}
	} else {
		slog.Warn("no assist API key configured, chat endpoints disabled")
	}

	handler := api.NewHandler(api.Deps{
		Store:  store,
		Syncer: syncRunner,
		Assist: assistClient,
		Model:  cfg.Assist.Model,
		Token:  apiToken,
		Logger: logger,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP server over stdio, alongside the HTTP API.
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:  store,
		Syncer: syncRunner,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "rolo listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("rolo is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop rolo (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to rolo (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	httpClient := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := httpClient.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if running {
		client, err := newAPIClient()
		if err == nil {
			statusResp, err := client.get(ctx, "/sync/status")
			if err == nil {
				var times map[string]time.Time
				if decodeJSON(statusResp, &times) == nil {
					for _, resource := range storage.Resources {
						if t, ok := times[resource]; ok {
							printStatus("Synced "+resource, "%s", t.Local().Format("2006-01-02 15:04"))
						} else {
							printStatus("Synced "+resource, "never")
						}
					}
				}
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
