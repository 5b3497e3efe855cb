package cli

var (
	verbose bool

	// replay/stream/server/config commands
	configPath string

	// for stream command
	streamServer string
	streamFast   bool
)
