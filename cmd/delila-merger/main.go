// Command delila-merger runs the N-subscriber fan-in stage as a
// standalone process. See cmd/delila-source for the shared entrypoint
// shape this and every other stage binary follows.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aogaki/delila-go/internal/config"
	"github.com/aogaki/delila-go/internal/control"
	"github.com/aogaki/delila-go/internal/daqutil"
	"github.com/aogaki/delila-go/internal/merger"
	"github.com/aogaki/delila-go/internal/state"
)

func main() {
	configPath := flag.String("config", "delila-merger.toml", "path to the stage's config document")
	verbose := flag.Bool("v", false, "dump the resolved configuration via go-spew before starting")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	doc, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("delila-merger: failed to load config")
	}

	cfg := merger.DefaultConfig()
	if len(doc.Network.SubscribeAddresses) > 0 {
		cfg.SubscribeAddresses = doc.Network.SubscribeAddresses
	}
	if doc.Network.DataAddress != "" {
		cfg.PublishAddress = doc.Network.DataAddress
	}
	if doc.Network.CommandAddress != "" {
		cfg.CommandAddress = doc.Network.CommandAddress
	}
	if doc.Settings.ChannelCapacity > 0 {
		cfg.ChannelCapacity = doc.Settings.ChannelCapacity
	}
	if *verbose {
		fmt.Print(daqutil.Dump(cfg))
	}

	m, err := merger.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("delila-merger: failed to construct merger")
	}
	machine := state.New(m)

	srv, err := control.Listen("merger", cfg.CommandAddress, machine)
	if err != nil {
		log.Fatal().Err(err).Msg("delila-merger: failed to bind command listener")
	}

	stop := make(chan struct{})
	go srv.Serve(stop)
	go m.Run()

	log.Info().Strs("subscribe_addresses", cfg.SubscribeAddresses).
		Str("publish_address", cfg.PublishAddress).
		Str("command_address", cfg.CommandAddress).
		Msg("delila-merger running")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	log.Info().Msg("delila-merger shutting down")
	close(stop)
	if err := m.Close(); err != nil {
		log.Warn().Err(err).Msg("delila-merger: error during shutdown")
	}
}
