// Command delila-source runs the synthetic event generator stage as a
// standalone process: one binary per pipeline stage. It loads config via
// viper, binds a control listener, and shuts down gracefully on
// SIGINT/SIGTERM.
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
	"github.com/aogaki/delila-go/internal/source"
	"github.com/aogaki/delila-go/internal/state"
)

func main() {
	configPath := flag.String("config", "delila-source.toml", "path to the stage's config document")
	verbose := flag.Bool("v", false, "dump the resolved configuration via go-spew before starting")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	doc, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("delila-source: failed to load config")
	}

	cfg := source.DefaultConfig()
	if doc.Network.DataAddress != "" {
		cfg.Address = doc.Network.DataAddress
	}
	commandAddress := cfg.CommandAddress
	if doc.Network.CommandAddress != "" {
		commandAddress = doc.Network.CommandAddress
	}
	if *verbose {
		fmt.Print(daqutil.Dump(cfg))
	}

	emu := source.New(cfg)
	machine := state.New(emu)

	srv, err := control.Listen("source", commandAddress, machine)
	if err != nil {
		log.Fatal().Err(err).Msg("delila-source: failed to bind command listener")
	}

	stop := make(chan struct{})
	go srv.Serve(stop)
	go emu.Run()

	log.Info().Str("data_address", cfg.Address).Str("command_address", commandAddress).
		Msg("delila-source running")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	log.Info().Msg("delila-source shutting down")
	close(stop)
	if err := emu.Close(); err != nil {
		log.Warn().Err(err).Msg("delila-source: error during shutdown")
	}
}
