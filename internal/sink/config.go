package sink

// Config holds a sink's upstream address and queue sizing. Sink has no
// publish side, so unlike merger.Config it carries no PublishAddress.
type Config struct {
	SubscribeAddresses []string
	// CommandAddress is a plain net.Listen TCP address (e.g. ":5580"), not
	// a ZMQ URL — the control plane is a bare TCP/JSON codec.
	CommandAddress  string
	ChannelCapacity int
}

// DefaultConfig mirrors the shape of merger.DefaultConfig minus publishing.
func DefaultConfig() Config {
	return Config{
		SubscribeAddresses: []string{"tcp://localhost:5556"},
		CommandAddress:     ":5580",
		ChannelCapacity:    1000,
	}
}
