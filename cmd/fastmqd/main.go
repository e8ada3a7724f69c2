// Command fastmqd runs a standalone fastmq broker: it loads a YAML config
// file (or falls back to built-in defaults), starts the broker, and blocks
// until SIGINT/SIGTERM for a graceful shutdown.
//
// Called by: operators / init systems.
// Calls: internal/config, internal/broker.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shayzogo/fastmq/internal/broker"
	"github.com/shayzogo/fastmq/internal/config"
)

func main() {
	var cfg *config.Config
	var configSource string

	if len(os.Args) >= 2 {
		configFile := os.Args[1]
		loaded, err := config.Load(configFile)
		if err != nil {
			log.Fatalf("fastmqd: failed to load config from %s: %v", configFile, err)
		}
		cfg = loaded
		configSource = "config file: " + configFile
	} else {
		cfg = defaultConfig()
		configSource = "built-in defaults"
	}

	if cfg.Debug || cfg.Broker.Debug {
		log.Printf("fastmqd: debug logging enabled")
	}
	log.Printf("fastmqd: starting using %s", configSource)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := broker.New(broker.Config{
		Network: cfg.Broker.Network,
		Address: cfg.Broker.Address,
		Debug:   cfg.Debug || cfg.Broker.Debug,
	})

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- b.Start(ctx)
	}()

	log.Printf("fastmqd: broker listening on %s %s", cfg.Broker.Network, cfg.Broker.Address)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("fastmqd: received signal %s, shutting down", sig)
	case err := <-serveErr:
		if err != nil {
			log.Printf("fastmqd: broker stopped with error: %v", err)
		}
		return
	}

	cancel()
	if err := <-serveErr; err != nil {
		log.Printf("fastmqd: shutdown error: %v", err)
	}
	log.Printf("fastmqd: stopped")
}

func defaultConfig() *config.Config {
	return &config.Config{
		Broker: config.BrokerConfig{
			Network: "tcp",
			Address: ":9009",
		},
	}
}
