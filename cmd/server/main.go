package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/internal/config"
	"github.com/AnshRaj112/skillswap-backend/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "skillswap",
	Short:         "SkillSwap API server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket API",
	RunE:  runServe,
}

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create the MongoDB indexes and exit",
	RunE:  runIndexes,
}

func init() {
	rootCmd.AddCommand(serveCmd, indexesCmd)
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found")
	}
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	if cfg.UsesDefaultSecret() {
		if cfg.IsProduction() {
			return nil, nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		logger.Warn("JWT_SECRET not set, using the development default")
	}
	return cfg, logger, nil
}
