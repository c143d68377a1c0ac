package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	server "shellstorm/server"
	servernet "shellstorm/server/internal/net"
	"shellstorm/server/logging"
	loggingSinks "shellstorm/server/logging/sinks"
)

type Config struct {
	Addr   string
	Logger *log.Logger
}

// Run wires logging, the hub, and the HTTP surface, then serves until the
// listener fails or ctx is cancelled at process exit.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	logConfig := logging.DefaultConfig()
	sinks := map[string]logging.Sink{
		"console": loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console),
	}
	router := logging.NewRouter(logging.SystemClock{}, logConfig, sinks)
	defer func() {
		if err := router.Close(ctx); err != nil {
			logger.Printf("failed to close logging router: %v", err)
		}
	}()

	hubCfg := server.DefaultHubConfig()
	if raw := os.Getenv("SHELLSTORM_SEED"); raw != "" {
		hubCfg.Seed = raw
	}
	if raw := os.Getenv("SHELLSTORM_GRACE_MILLIS"); raw != "" {
		if value, err := strconv.ParseInt(raw, 10, 64); err == nil && value > 0 {
			hubCfg.GraceMillis = value
		} else {
			logger.Printf("invalid SHELLSTORM_GRACE_MILLIS=%q", raw)
		}
	}
	if raw := os.Getenv("SHELLSTORM_PRACTICE_TARGETS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			hubCfg.PracticeTargets = value
		} else {
			logger.Printf("invalid SHELLSTORM_PRACTICE_TARGETS=%q", raw)
		}
	}

	hub := server.NewHub(hubCfg, router)
	defer hub.Teardown()

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{Logger: logger})

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	if raw := os.Getenv("SHELLSTORM_ADDR"); raw != "" {
		addr = raw
	}

	srv := &http.Server{Addr: addr, Handler: handler}
	logger.Printf("server listening on %s", srv.Addr)

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
