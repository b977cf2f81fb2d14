// Command server runs the authoritative arena game server: one TCP listener,
// newline-delimited JSON framing, a lazily-created Game Instance per map.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/meridian-games/arena/config"
	"github.com/meridian-games/arena/internal/instance"
	"github.com/meridian-games/arena/internal/mapcatalog"
	"github.com/meridian-games/arena/internal/registry"
	"github.com/meridian-games/arena/internal/router"
	"github.com/meridian-games/arena/internal/transport"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.WithField("system", "server")

	cfg, err := config.LoadFile(configPath())
	if err != nil {
		log.WithError(err).Fatal("failed to load config file")
	}
	config.ApplyEnv(cfg)
	applyArgs(cfg)

	catalog, err := mapcatalog.Load(cfg.MapsDir)
	if err != nil {
		log.WithError(err).Fatal("failed to load map catalog")
	}
	if catalog.Len() == 0 {
		log.WithField("maps_dir", cfg.MapsDir).Fatal("no maps loaded: at least one map descriptor is required")
	}

	reg := registry.New()
	manager := instance.NewManager(catalog, reg, cfg.TickRate)
	rt := router.New(reg, catalog, manager)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.WithError(err).Fatal("failed to listen")
	}

	log.WithFields(logrus.Fields{
		"addr":      addr,
		"tick_rate": cfg.TickRate,
		"maps":      catalog.Len(),
	}).Info("server listening")

	var wg sync.WaitGroup
	stopAccept := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		acceptLoop(listener, rt, log, stopAccept)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received")
	close(stopAccept)
	_ = listener.Close()

	manager.StopAll()

	for _, c := range reg.All() {
		_ = c.Close()
	}

	wg.Wait()
	log.Info("server stopped")
}

// acceptLoop accepts connections until stop is closed, spawning one
// Router.Serve goroutine per client.
func acceptLoop(listener net.Listener, rt *router.Router, log *logrus.Entry, stop <-chan struct{}) {
	for {
		nc, err := listener.Accept()
		if err != nil {
			select {
			case <-stop:
				return
			default:
				log.WithError(err).Error("accept failed")
				continue
			}
		}

		id, err := newClientID()
		if err != nil {
			log.WithError(err).Error("failed to generate client id, dropping connection")
			_ = nc.Close()
			continue
		}

		c := transport.New(id, nc)
		go rt.Serve(c)
	}
}

// newClientID mints a random hex client id.
func newClientID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func configPath() string {
	if p := os.Getenv("ARENA_CONFIG"); p != "" {
		return p
	}
	return "server.json"
}

// applyArgs lets `server [host] [port]` override whatever config/env already
// produced, for quick local testing.
func applyArgs(cfg *config.ServerConfig) {
	args := os.Args[1:]
	if len(args) >= 1 && args[0] != "" {
		cfg.Host = args[0]
	}
	if len(args) >= 2 {
		var port int
		if _, err := fmt.Sscanf(args[1], "%d", &port); err == nil && port > 0 {
			cfg.Port = port
		}
	}
}
