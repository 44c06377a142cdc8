package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	clientcmd "github.com/BroadbandForum/obbaa-netconf-stack-sub017/internal/cmd/client"
	serverrun "github.com/BroadbandForum/obbaa-netconf-stack-sub017/internal/cmd/server"
	cfgpkg "github.com/BroadbandForum/obbaa-netconf-stack-sub017/internal/config"
	logpkg "github.com/BroadbandForum/obbaa-netconf-stack-sub017/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	// initialize logger for CLI
	// Respect NCNOTIF_LOG_LEVEL for both CLI and server start output
	level := os.Getenv("NCNOTIF_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	// Redirect standard library logs to our logger
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "nc-notifyd",
		Short: "Event notification server CLI",
		Long:  "nc-notifyd serves named event streams over HTTP with replay and subscriptions. This CLI manages the server and basic operations.",
	}

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the notification server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			httpAddr, _ := cmd.Flags().GetString("http")
			configPath, _ := cmd.Flags().GetString("config")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if logLevel != "" {
				_ = os.Setenv("NCNOTIF_LOG_LEVEL", logLevel)
			}
			if logFormat != "" {
				_ = os.Setenv("NCNOTIF_LOG_FORMAT", logFormat)
			}
			if err := serverrun.Run(ctx, serverrun.Options{
				HTTPAddr:   httpAddr,
				ConfigPath: configPath,
				Config:     cfgpkg.Default(),
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	serverStartCmd.Flags().String("http", ":8080", "HTTP listen address")
	serverStartCmd.Flags().String("config", os.Getenv("NCNOTIF_CONFIG"), "Config file (JSON or YAML)")
	serverStartCmd.Flags().String("log-level", os.Getenv("NCNOTIF_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", os.Getenv("NCNOTIF_LOG_FORMAT"), "Log format: text|json (default text)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// client command groups
	rootCmd.AddCommand(clientcmd.NewNotifyCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewStreamCommand(apiURL))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("NCNOTIF_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
