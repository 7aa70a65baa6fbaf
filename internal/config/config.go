// Package config loads each stage's declarative configuration document:
// bind/connect addresses, pipeline order, queue capacities, rotation
// thresholds. Loading uses viper.Unmarshal the same way the wider
// codebase's config loading does, and the document's network/settings
// split follows the original Rust config module's shape. A missing
// document is not an error; built-in defaults apply instead, tolerating
// an absent config file the same way a missing optional section is
// tolerated elsewhere.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"
)

// Network holds the addresses a stage binds or connects to.
type Network struct {
	// DataAddress is where the source and merger bind their publisher. The
	// recorder subscribes to it when SubscribeAddresses is empty; the
	// monitor subscribes to it whenever it is set. The sink does not read it.
	DataAddress string `mapstructure:"data_address"`
	// SubscribeAddresses lists upstream addresses to connect to (the
	// merger's fan-in case). The merger, recorder and sink connect to every
	// entry; the monitor uses only the first, and only when DataAddress is
	// empty.
	SubscribeAddresses []string `mapstructure:"subscribe_addresses"`
	// CommandAddress is where this stage binds its control-plane listener,
	// a plain net.Listen TCP address (e.g. ":5560"), not a ZMQ URL like
	// DataAddress.
	CommandAddress string `mapstructure:"command_address"`
	// Order is the pipeline position (smaller = upstream), used by an
	// operator dispatching Start/Stop in the right sequence.
	Order int `mapstructure:"order"`
}

// Settings holds stage-agnostic tunables shared by every component.
type Settings struct {
	ChannelCapacity int `mapstructure:"channel_capacity"`
}

// Document is the top-level shape every stage's config file follows.
type Document struct {
	Network  Network  `mapstructure:"network"`
	Settings Settings `mapstructure:"settings"`
}

// DefaultSettings returns the default queue capacity: 1000 messages,
// configurable per stage via the settings section.
func DefaultSettings() Settings {
	return Settings{ChannelCapacity: 1000}
}

// Load reads a config document from path. A missing file is not an error:
// Document is returned with only Settings defaulted, letting the caller's
// own stage-specific defaults (addresses, etc.) take over, mirroring the
// teacher's tolerance of a missing "trigger" viper key.
func Load(path string) (Document, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("settings.channel_capacity", DefaultSettings().ChannelCapacity)

	doc := Document{Settings: DefaultSettings()}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound || errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return doc, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := v.Unmarshal(&doc); err != nil {
		return doc, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return doc, nil
}
