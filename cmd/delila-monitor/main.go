// Command delila-monitor runs the live-histogram stage as a standalone
// process. See cmd/delila-source for the shared entrypoint shape this and
// every other stage binary follows.
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
	"github.com/aogaki/delila-go/internal/monitor"
	"github.com/aogaki/delila-go/internal/state"
)

func main() {
	configPath := flag.String("config", "delila-monitor.toml", "path to the stage's config document")
	httpAddress := flag.String("http", "", "override the histogram query HTTP address")
	verbose := flag.Bool("v", false, "dump the resolved configuration via go-spew before starting")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	doc, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("delila-monitor: failed to load config")
	}

	cfg := monitor.DefaultConfig()
	if doc.Network.DataAddress != "" {
		cfg.SubscribeAddress = doc.Network.DataAddress
	} else if len(doc.Network.SubscribeAddresses) > 0 {
		cfg.SubscribeAddress = doc.Network.SubscribeAddresses[0]
	}
	if doc.Network.CommandAddress != "" {
		cfg.CommandAddress = doc.Network.CommandAddress
	}
	if doc.Settings.ChannelCapacity > 0 {
		cfg.ChannelCapacity = doc.Settings.ChannelCapacity
	}
	if *httpAddress != "" {
		cfg.HTTPAddress = *httpAddress
	}
	if *verbose {
		fmt.Print(daqutil.Dump(cfg))
	}

	mon, err := monitor.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("delila-monitor: failed to construct monitor")
	}
	machine := state.New(mon)

	srv, err := control.Listen("monitor", cfg.CommandAddress, machine)
	if err != nil {
		log.Fatal().Err(err).Msg("delila-monitor: failed to bind command listener")
	}

	stop := make(chan struct{})
	go srv.Serve(stop)
	go mon.Run()

	log.Info().Str("subscribe_address", cfg.SubscribeAddress).
		Str("command_address", cfg.CommandAddress).
		Str("http_address", cfg.HTTPAddress).
		Msg("delila-monitor running")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	log.Info().Msg("delila-monitor shutting down")
	close(stop)
	if err := mon.Close(); err != nil {
		log.Warn().Err(err).Msg("delila-monitor: error during shutdown")
	}
}
