// Command delila-sink runs the discard-everything consumer stage as a
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
	"github.com/aogaki/delila-go/internal/sink"
	"github.com/aogaki/delila-go/internal/state"
)

func main() {
	configPath := flag.String("config", "delila-sink.toml", "path to the stage's config document")
	verbose := flag.Bool("v", false, "dump the resolved configuration via go-spew before starting")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	doc, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("delila-sink: failed to load config")
	}

	cfg := sink.DefaultConfig()
	if len(doc.Network.SubscribeAddresses) > 0 {
		cfg.SubscribeAddresses = doc.Network.SubscribeAddresses
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

	s, err := sink.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("delila-sink: failed to construct sink")
	}
	machine := state.New(s)

	srv, err := control.Listen("sink", cfg.CommandAddress, machine)
	if err != nil {
		log.Fatal().Err(err).Msg("delila-sink: failed to bind command listener")
	}

	stop := make(chan struct{})
	go srv.Serve(stop)
	go s.Run()

	log.Info().Strs("subscribe_addresses", cfg.SubscribeAddresses).
		Str("command_address", cfg.CommandAddress).
		Msg("delila-sink running")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	log.Info().Msg("delila-sink shutting down")
	close(stop)
	if err := s.Close(); err != nil {
		log.Warn().Err(err).Msg("delila-sink: error during shutdown")
	}
}
