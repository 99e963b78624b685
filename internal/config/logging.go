package config

import (
	"log/slog"
	"os"
	"strings"
)

// SetupLogging installs the process-wide structured logger at the configured
// level and returns it.
func SetupLogging(level string) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Log writes the resolved settings at startup, masking credentials.
func Log(s *Settings, logger *slog.Logger) {
	logger.Info("config: cluster", "nodes", s.Cluster.Nodes, "port", s.Cluster.Port, "ssl", s.Cluster.NetSSL)
	if s.Cluster.AuthUser != "" {
		logger.Info("config: cluster auth", "user", s.Cluster.AuthUser, "password", "****")
	}
	logger.Info("config: storage", "backend", s.Storage.Backend)
	if s.RegistryPath != "" {
		logger.Info("config: schema registry", "path", s.RegistryPath)
	}
	if len(s.BulkOptions) > 0 {
		logger.Info("config: bulk defaults", "keys", len(s.BulkOptions))
	}
}
