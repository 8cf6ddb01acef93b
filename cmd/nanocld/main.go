// Command nanocld is the cluster daemon: it owns the Postgres-backed store,
// the process reconciler, the HTTP API, and the node heartbeat/metrics
// samplers, and serves until asked to stop.
package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nanocl-project/nanocld/internal/config"
	"github.com/nanocl-project/nanocld/internal/eventbus"
	"github.com/nanocl-project/nanocld/internal/httpapi"
	"github.com/nanocl-project/nanocld/internal/logging"
	"github.com/nanocl-project/nanocld/internal/metrics"
	"github.com/nanocl-project/nanocld/internal/node"
	"github.com/nanocl-project/nanocld/internal/objstatus"
	"github.com/nanocl-project/nanocld/internal/process"
	"github.com/nanocl-project/nanocld/internal/runtime"
	"github.com/nanocl-project/nanocld/internal/secretcrypto"
	"github.com/nanocl-project/nanocld/internal/specs"
	"github.com/nanocl-project/nanocld/internal/store"
	"github.com/nanocl-project/nanocld/internal/store/migrations"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "nanocld:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}
	log := logging.New("nanocld", logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := store.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	if err := migrations.ApplyWithContext(ctx, s.DB()); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	sp := specs.New(s)
	status := objstatus.New(s)
	bus := eventbus.New(cfg.EventQueueSize)

	// The real container-engine client is out of scope (see internal/runtime);
	// the fake keeps every higher layer exercised until one lands.
	rt := runtime.NewFake()
	recon := process.New(s, status, sp, rt, bus, logging.New("reconciler", logCfg))

	secretKey := deriveSecretKey(cfg.SecretEncryptionKey)
	secretBox, err := secretcrypto.New(secretKey)
	if err != nil {
		return fmt.Errorf("build secret box: %w", err)
	}

	ipAddress, err := node.DetectIPAddress()
	if err != nil {
		log.Errorf("detect ip address: %v, falling back to 127.0.0.1", err)
		ipAddress = "127.0.0.1"
	}

	registry := node.NewRegistry(s)
	self, err := registry.Register(ctx, cfg.NodeName, ipAddress)
	if err != nil {
		return fmt.Errorf("register node: %w", err)
	}
	log.Infof("registered node %s at %s", self.Name, self.IPAddress)

	heartbeat := node.NewHeartbeat(registry, logging.New("heartbeat", logCfg))
	heartbeatSchedule := fmt.Sprintf("@every %ds", cfg.NodeHeartbeatSec)
	if err := heartbeat.Start(ctx, heartbeatSchedule, cfg.NodeName, ipAddress); err != nil {
		return fmt.Errorf("start heartbeat: %w", err)
	}
	defer heartbeat.Stop()

	if cfg.MetricsEnabled {
		sampler := metrics.NewSampler(s, logging.New("metrics", logCfg), cfg.NodeName, 24*time.Hour)
		if err := sampler.Start(ctx, "@every 1m"); err != nil {
			return fmt.Errorf("start metrics sampler: %w", err)
		}
		defer sampler.Stop()
	}

	api := httpapi.New(s, sp, status, recon, bus, logging.New("httpapi", logCfg), process.NodeIdentity{Name: cfg.NodeName}, secretBox)
	if strings.HasPrefix(cfg.ListenAddr, "tcp://") {
		if cfg.AuthSecret != "" {
			api.SetAuthSecret([]byte(cfg.AuthSecret))
		}
		api.SetRateLimiter(float64(cfg.RateLimitPerSecond), cfg.RateLimitBurst)
	}

	server := &http.Server{Handler: api.Router()}
	listener, err := listen(cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(listener) }()
	log.Infof("nanocld listening on %s", cfg.ListenAddr)

	select {
	case <-ctx.Done():
		log.Infof("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}

// listen builds a net.Listener from a unix:// or tcp:// address, removing
// any stale socket file left behind by an unclean shutdown.
func listen(addr string) (net.Listener, error) {
	switch {
	case strings.HasPrefix(addr, "unix://"):
		path := strings.TrimPrefix(addr, "unix://")
		if err := os.MkdirAll(parentDir(path), 0o755); err != nil {
			return nil, err
		}
		_ = os.Remove(path)
		return net.Listen("unix", path)
	case strings.HasPrefix(addr, "tcp://"):
		return net.Listen("tcp", strings.TrimPrefix(addr, "tcp://"))
	default:
		return net.Listen("tcp", addr)
	}
}

func parentDir(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "."
	}
	return path[:idx]
}

// deriveSecretKey folds an operator-supplied key of any length into the 32
// bytes chacha20poly1305 requires; an empty key yields a fixed, clearly
// insecure development default (Config.Validate rejects this in production).
func deriveSecretKey(raw string) []byte {
	if raw == "" {
		raw = "nanocl-development-secret-key-do-not-use-in-prod"
	}
	sum := sha256.Sum256([]byte(raw))
	return sum[:]
}
