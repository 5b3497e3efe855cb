package cli

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/gesturekit/gesturekit/commands"
	"github.com/gesturekit/gesturekit/daemon"
	"github.com/gesturekit/gesturekit/server"
	"github.com/gesturekit/gesturekit/trace"
	"github.com/gesturekit/gesturekit/utils"
	"github.com/spf13/cobra"
)

const defaultServerAddress = "localhost:12000"

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Server management commands",
	Long:  `Commands for managing the gesturekit server.`,
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the gesturekit server",
	Long:  `Starts the gesturekit server.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr := cmd.Flag("listen").Value.String()
		if listenAddr == "" {
			listenAddr = defaultServerAddress
		}

		// GetBool/GetString cannot fail for defined flags
		enableCORS, _ := cmd.Flags().GetBool("cors")
		isDaemon, _ := cmd.Flags().GetBool("daemon")
		requireAuth, _ := cmd.Flags().GetBool("require-auth")
		recordPath, _ := cmd.Flags().GetString("record")

		opts := server.Options{EnableCORS: enableCORS}
		if requireAuth {
			token, err := loadStoredToken()
			if err != nil {
				return fmt.Errorf("no auth token stored, run 'gesturekit auth set' first")
			}
			opts.RequireAuth = true
			opts.AuthToken = token
		}

		if isDaemon && !daemon.IsChild() {
			// fail here rather than in a detached child nobody can see
			host, port, err := parseListenAddr(listenAddr)
			if err != nil {
				return err
			}
			if !utils.IsPortAvailable(host, port) {
				return fmt.Errorf("port %d is already in use on %s", port, host)
			}

			_, err = daemon.Daemonize()
			if err != nil {
				return fmt.Errorf("failed to start daemon: %w", err)
			}

			fmt.Printf("Server daemon spawned, attempting to listen on %s\n", listenAddr)
			return nil
		}

		tuning, err := loadTuning(configPath)
		if err != nil {
			return err
		}

		engineOpts := commands.EngineOptions{Tuning: tuning}
		if recordPath != "" {
			recorder, err := trace.CreateFile(recordPath)
			if err != nil {
				return err
			}
			defer func() { _ = recorder.Close() }()
			engineOpts.Recorder = recorder
		}
		commands.SetEngine(commands.NewEngine(engineOpts))

		return server.StartServer(listenAddr, opts)
	},
}

var serverKillCmd = &cobra.Command{
	Use:   "kill",
	Short: "Stop the daemonized gesturekit server",
	Long:  `Connects to the server and sends a shutdown command via JSON-RPC.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// GetString cannot fail for defined flags
		addr, _ := cmd.Flags().GetString("listen")
		if addr == "" {
			addr = defaultServerAddress
		}

		// token is optional, servers without --require-auth ignore it
		token, _ := loadStoredToken()
		err := daemon.KillServer(addr, token)
		if err != nil {
			return err
		}

		fmt.Printf("Server shutdown command sent successfully\n")
		return nil
	},
}

// parseListenAddr splits a listen address into host and port,
// accepting "host:port", ":port", and bare "port" forms.
func parseListenAddr(addr string) (string, int, error) {
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return host, port, nil
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// add server subcommands
	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverKillCmd)

	// server start flags
	serverStartCmd.Flags().String("listen", "", "Address to listen on (e.g., 'localhost:12000' or '0.0.0.0:13000')")
	serverStartCmd.Flags().Bool("cors", false, "Enable CORS support")
	serverStartCmd.Flags().BoolP("daemon", "d", false, "Run server in daemon mode (background)")
	serverStartCmd.Flags().Bool("require-auth", false, "Require the stored bearer token on /rpc requests")
	serverStartCmd.Flags().String("record", "", "Record every inbound touch event to a trace file")
	serverStartCmd.Flags().StringVar(&configPath, "config", "", "path to a tuning file (INI)")

	// server kill flags
	serverKillCmd.Flags().String("listen", "", fmt.Sprintf("Address of server to kill (default: %s)", defaultServerAddress))
}
