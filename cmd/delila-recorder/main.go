// Command delila-recorder runs the storage-engine stage as a standalone
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
	"github.com/aogaki/delila-go/internal/recorder"
	"github.com/aogaki/delila-go/internal/state"
)

func main() {
	configPath := flag.String("config", "delila-recorder.toml", "path to the stage's config document")
	outputDir := flag.String("output-dir", "", "override the recorder's output directory")
	verbose := flag.Bool("v", false, "dump the resolved configuration via go-spew before starting")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	doc, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("delila-recorder: failed to load config")
	}

	cfg := recorder.DefaultConfig()
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	addresses := doc.Network.SubscribeAddresses
	if len(addresses) == 0 {
		if doc.Network.DataAddress == "" {
			log.Fatal().Msg("delila-recorder: no upstream address configured (network.data_address or network.subscribe_addresses)")
		}
		addresses = []string{doc.Network.DataAddress}
	}
	commandAddress := doc.Network.CommandAddress
	if commandAddress == "" {
		commandAddress = ":5571"
	}
	if *verbose {
		fmt.Print(daqutil.Dump(cfg))
	}

	rec, err := recorder.New(cfg, addresses...)
	if err != nil {
		log.Fatal().Err(err).Msg("delila-recorder: failed to construct recorder")
	}
	machine := state.New(rec)
	rec.SetFailHandler(machine.Fail)

	srv, err := control.Listen("recorder", commandAddress, machine)
	if err != nil {
		log.Fatal().Err(err).Msg("delila-recorder: failed to bind command listener")
	}

	stop := make(chan struct{})
	go srv.Serve(stop)
	go rec.Run()

	log.Info().Strs("subscribe_addresses", addresses).
		Str("command_address", commandAddress).
		Str("output_dir", cfg.OutputDir).
		Msg("delila-recorder running")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	log.Info().Msg("delila-recorder shutting down")
	close(stop)
	if err := rec.Close(); err != nil {
		log.Warn().Err(err).Msg("delila-recorder: error during shutdown")
	}
}
