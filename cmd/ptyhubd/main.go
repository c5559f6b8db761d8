// ptyhubd hosts pseudo-terminal child processes and exposes them to
// browser clients over HTTP and WebSocket, guarded by a single bearer
// token generated at startup.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/johan--/parallel-code/internal/authtoken"
	"github.com/johan--/parallel-code/internal/commands"
	"github.com/johan--/parallel-code/internal/config"
	"github.com/johan--/parallel-code/internal/eventbus"
	"github.com/johan--/parallel-code/internal/netinfo"
	"github.com/johan--/parallel-code/internal/ptysession"
	"github.com/johan--/parallel-code/internal/qr"
	"github.com/johan--/parallel-code/internal/wsserver"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n\nPANIC: %v\n", r)
			os.Exit(1)
		}
	}()

	logFile, err := os.Create("/tmp/ptyhubd.log")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	logLevel := slog.LevelInfo
	if os.Getenv("PTYHUB_LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:     "ptyhubd",
		Short:   "Remote PTY multiplexer daemon",
		Version: Version,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP/WebSocket server and print its access URL",
		RunE:  runServe,
	}
	serveCmd.Flags().Int("port", 0, "override the configured port")
	serveCmd.Flags().String("static-dir", "", "override the configured static asset directory")
	serveCmd.Flags().Bool("invert-qr", false, "print the access QR code in inverted colors, for dark terminal themes")
	rootCmd.AddCommand(serveCmd)

	configGetCmd := &cobra.Command{
		Use:   "config-get <key>",
		Short: "Get a configuration value by dot notation path",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigGet,
	}
	rootCmd.AddCommand(configGetCmd)

	configSetCmd := &cobra.Command{
		Use:   "config-set <key> <value>",
		Short: "Set a configuration value by dot notation path",
		Args:  cobra.ExactArgs(2),
		RunE:  runConfigSet,
	}
	rootCmd.AddCommand(configSetCmd)

	configDeleteCmd := &cobra.Command{
		Use:   "config-delete <key>",
		Short: "Delete a configuration key",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigDelete,
	}
	rootCmd.AddCommand(configDeleteCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Port = port
	}
	if staticDir, _ := cmd.Flags().GetString("static-dir"); staticDir != "" {
		cfg.StaticDir = staticDir
	}
	invertQR, _ := cmd.Flags().GetBool("invert-qr")

	token, err := authtoken.New()
	if err != nil {
		return fmt.Errorf("failed to generate access token: %w", err)
	}

	bus := eventbus.New(logger)
	sink := newLoggingSink(logger)
	pool := ptysession.New(bus, sink, standaloneMeta{}, logger)
	pool.SetTuning(ptysession.Tuning{
		BatchMaxBytes:   cfg.BatchMaxBytes,
		BatchIntervalMS: cfg.BatchIntervalMS,
		TailCapBytes:    cfg.TailCapBytes,
		MaxLines:        cfg.MaxLines,
	})

	srv := wsserver.New(wsserver.Config{
		Pool:       pool,
		Bus:        bus,
		Token:      token,
		StaticDir:  cfg.StaticDir,
		MaxClients: cfg.MaxWSClients,
		Logger:     logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", addr)
		serveErr <- srv.Start(addr)
	}()

	printAccessInfo(cfg.Port, token.String(), invertQR)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-serveErr:
		if err != nil {
			logger.Error("server error", "error", err)
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	pool.KillAll()

	return nil
}

// printAccessInfo prints the advertised URLs and a scannable QR code for
// the primary one.
func printAccessInfo(port int, token string, invert bool) {
	addrs, err := netinfo.Discover()
	if err != nil {
		fmt.Printf("Listening on port %d (failed to enumerate network interfaces: %v)\n", port, err)
		return
	}

	urls := netinfo.BuildURLs(addrs, port, token)

	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Primary:  %s\n", urls.Primary)
	if urls.LAN != "" {
		fmt.Printf("LAN:      %s\n", urls.LAN)
	}
	if urls.Mesh != "" {
		fmt.Printf("Mesh:     %s\n", urls.Mesh)
	}
	fmt.Println(strings.Repeat("-", 40))

	const maxQRWidth, maxQRHeight = 120, 60

	var lines []string
	if invert {
		lines = qr.GenerateLinesInverted(urls.Primary, maxQRWidth, maxQRHeight)
	} else {
		lines = qr.GenerateLines(urls.Primary, maxQRWidth, maxQRHeight)
	}
	for _, line := range lines {
		fmt.Println(line)
	}
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	value, err := commands.JSONGet(path, args[0])
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if err := commands.JSONSet(path, args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("Set %s = %s\n", args[0], args[1])
	return nil
}

func runConfigDelete(cmd *cobra.Command, args []string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if err := commands.JSONDelete(path, args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}
