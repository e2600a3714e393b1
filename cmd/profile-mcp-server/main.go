package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/rufetisr/FitnessTelegramBot/internal/logging"
	"github.com/rufetisr/FitnessTelegramBot/internal/profilemcp"
	"github.com/rufetisr/FitnessTelegramBot/internal/store"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	// stdout carries the MCP protocol, so logs always go to stderr.
	logger, err := logging.New(getenv("LOG_LEVEL", "info"), getenv("LOG_FORMAT", "json"))
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profiles, err := store.Open(ctx,
		store.WithDSN(os.Getenv("DATABASE_URL")),
		store.WithMongoDatabase(getenv("MONGO_DATABASE", "healthmentor")),
		store.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("failed to open profile store", zap.Error(err))
	}
	defer profiles.Close()

	server := profilemcp.NewServer(profiles, logger)
	logger.Info("starting profile MCP server on stdio",
		zap.Strings("tools", []string{profilemcp.ToolGetProfile, profilemcp.ToolListProfiles}))

	if err := server.Run(ctx, mcp.NewStdioTransport()); err != nil && ctx.Err() == nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
