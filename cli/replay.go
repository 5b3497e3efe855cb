package cli

import (
	"fmt"

	"github.com/gesturekit/gesturekit/commands"
	"github.com/gesturekit/gesturekit/config"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay [trace-file]",
	Short: "Replay a recorded touch trace through the recognizers",
	Long:  `Feeds a recorded trace (JSON Lines) through a fresh recognizer session on a virtual clock and prints every gesture it produces. The same trace always yields the same report.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tuning, err := loadTuning(configPath)
		if err != nil {
			return err
		}

		req := commands.ReplayRequest{
			TracePath: args[0],
			Tuning:    tuning,
		}

		response := commands.ReplayCommand(req)
		printJson(response)
		if response.Status == "error" {
			return fmt.Errorf("%s", response.Error)
		}
		return nil
	},
}

// loadTuning reads the tuning file when a path was given; an empty
// path means built-in defaults.
func loadTuning(path string) (*config.Tuning, error) {
	if path == "" {
		return nil, nil
	}
	return config.Load(path)
}

func init() {
	rootCmd.AddCommand(replayCmd)

	// replay command flags
	replayCmd.Flags().StringVar(&configPath, "config", "", "path to a tuning file (INI)")
}
