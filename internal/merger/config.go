package merger

// Config holds a merger's upstream/downstream addresses and queue sizing.
type Config struct {
	SubscribeAddresses []string
	PublishAddress     string
	// CommandAddress is a plain net.Listen TCP address (e.g. ":5570"), not
	// a ZMQ URL like PublishAddress — the control plane is a bare
	// TCP/JSON codec.
	CommandAddress  string
	ChannelCapacity int
}

// DefaultConfig mirrors the Rust original's MergerConfig::default().
func DefaultConfig() Config {
	return Config{
		SubscribeAddresses: []string{"tcp://localhost:5555"},
		PublishAddress:     "tcp://*:5556",
		CommandAddress:     ":5570",
		ChannelCapacity:    1000,
	}
}
