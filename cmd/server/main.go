// Package main is the entry point for the blog edge server.
//
// The edge fronts the blog platform API for browsers: it owns the platform
// tokens (browsers only ever see an opaque session cookie), keeps each
// session's access token fresh in the background, and holds per-session
// post collection state for server-side rendering.
//
// Configuration is environment variables, with defaults for local runs:
//
//	PORT           listen port (default 8080)
//	UPSTREAM_URL   base URL of the blog platform API (required)
//	DB_PATH        token database file (default data/edge.db; "" ok, see below)
//	LOG_LEVEL      debug | info | warn | error (default info)
//	SECURE_COOKIES set to any value when serving over HTTPS
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sakif/blog-edge/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("LOG_LEVEL")),
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	upstream := os.Getenv("UPSTREAM_URL")
	if upstream == "" {
		logger.Error("UPSTREAM_URL is required")
		os.Exit(1)
	}

	dbPath := "data/edge.db"
	if envDB, ok := os.LookupEnv("DB_PATH"); ok {
		dbPath = envDB
	}
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", filepath.Dir(dbPath)),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	cfg := server.Config{
		Port:          port,
		UpstreamURL:   upstream,
		DBPath:        dbPath,
		SecureCookies: os.Getenv("SECURE_COOKIES") != "",
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
