package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
)

const keyringService = "gesturekit"
const keyringUser = "rpc-token"

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  `Commands for managing the bearer token the server checks when started with --require-auth. The token is stored in the system keyring.`,
}

var authSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store the server auth token",
	Long:  `Stores a bearer token in the system keyring. With no argument a random token is generated and printed.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var token string
		if len(args) == 1 {
			token = args[0]
		} else {
			tokenBytes := make([]byte, 16)
			if _, err := rand.Read(tokenBytes); err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}
			token = hex.EncodeToString(tokenBytes)
		}

		if err := keyring.Set(keyringService, keyringUser, token); err != nil {
			return fmt.Errorf("failed to store token: %w", err)
		}

		if len(args) == 0 {
			fmt.Println(token)
		}
		return nil
	},
}

var authShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the stored auth token",
	Long:  `Displays the bearer token currently stored in the system keyring.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := loadStoredToken()
		if err != nil {
			return fmt.Errorf("no auth token stored")
		}

		fmt.Println(token)
		return nil
	},
}

var authClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored auth token",
	Long:  `Removes the bearer token from the system keyring.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keyring.Delete(keyringService, keyringUser); err != nil {
			fmt.Println("no auth token stored")
			return nil
		}

		fmt.Println("Auth token removed.")
		return nil
	},
}

// loadStoredToken fetches the bearer token from the system keyring.
func loadStoredToken() (string, error) {
	return keyring.Get(keyringService, keyringUser)
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd, authShowCmd, authClearCmd)
}
