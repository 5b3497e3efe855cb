package cli

import (
	"fmt"

	"github.com/gesturekit/gesturekit/commands"
	"github.com/gesturekit/gesturekit/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
	Long:  `Commands for inspecting recognizer tuning.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective recognizer tuning",
	Long:  `Prints the tuning values the recognizers would run with, after applying the given tuning file on top of the built-in defaults.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tuning, err := loadTuning(configPath)
		if err != nil {
			return err
		}
		if tuning == nil {
			tuning = &config.Tuning{}
		}

		response := commands.NewSuccessResponse(tuning.Effective())
		printJson(response)
		if response.Status == "error" {
			return fmt.Errorf("%s", response.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)

	// add config subcommands
	configCmd.AddCommand(configShowCmd)

	// config show flags
	configShowCmd.Flags().StringVar(&configPath, "config", "", "path to a tuning file (INI)")
}
