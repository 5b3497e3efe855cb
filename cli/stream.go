package cli

import (
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gesturekit/gesturekit/client"
	"github.com/gesturekit/gesturekit/commands"
	"github.com/gesturekit/gesturekit/trace"
	"github.com/gesturekit/gesturekit/utils"
	"github.com/spf13/cobra"
)

// streamDrainDelay gives trailing notifications (a long-press firing
// after the last input) time to arrive before the session is closed.
const streamDrainDelay = 250 * time.Millisecond

var streamCmd = &cobra.Command{
	Use:   "stream [trace-file]",
	Short: "Stream a recorded touch trace to a live server",
	Long:  `Replays a recorded trace against a running gesturekit server over WebSocket JSON-RPC, pacing events by their timestamps, and prints every gesture the server pushes back. Use --fast to skip the pacing sleeps (timer-driven gestures like long-press will not trigger then).`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := trace.ReadFile(args[0])
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return fmt.Errorf("trace file %s has no events", args[0])
		}

		tuning, err := loadTuning(configPath)
		if err != nil {
			return err
		}

		host, portStr, err := net.SplitHostPort(streamServer)
		if err != nil {
			return fmt.Errorf("invalid server address %q: %w", streamServer, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid server port %q: %w", portStr, err)
		}

		c := client.NewClient(host, port)
		defer c.Close()

		// attach the stored token if one exists, in case the server
		// was started with --require-auth
		if token, err := loadStoredToken(); err == nil {
			c.SetAuthToken(token)
		}

		if err := c.HealthCheck(); err != nil {
			return fmt.Errorf("server is not running on %s", streamServer)
		}

		var received atomic.Int64
		c.OnGestureEvent(func(event commands.GestureEvent) {
			received.Add(1)
			printJson(event)
		})

		sessionID, rtl, err := c.CreateSession("", tuning)
		if err != nil {
			return err
		}
		utils.Verbose("streaming %d events to session %s (rtl=%v)", len(events), sessionID, rtl)

		// cursor tracks trace time so pacing sleeps cover only the gap
		// since the previous event
		cursor := 0.0
		for i, ev := range events {
			switch ev.Kind {
			case trace.KindStart, trace.KindMove, trace.KindEnd:
				if gap := ev.TimestampMs - cursor; gap > 0 {
					if !streamFast {
						time.Sleep(time.Duration(gap * float64(time.Millisecond)))
					}
					cursor = ev.TimestampMs
				}
				switch ev.Kind {
				case trace.KindStart:
					err = c.TouchStart(sessionID, ev.TimestampMs, ev.Contacts)
				case trace.KindMove:
					err = c.TouchMove(sessionID, ev.TimestampMs, ev.Contacts)
				case trace.KindEnd:
					err = c.TouchEnd(sessionID, ev.TimestampMs, ev.Contacts)
				}
			case trace.KindWait:
				if !streamFast {
					time.Sleep(time.Duration(ev.DurationMs * float64(time.Millisecond)))
				}
				cursor += ev.DurationMs
			case trace.KindDirection:
				if ev.Direction == "" {
					_, err = c.ClearDirection(sessionID)
				} else {
					_, err = c.SetDirection(sessionID, ev.Direction)
				}
			case trace.KindLanguage:
				_, err = c.SetLanguage(sessionID, ev.Language)
			default:
				err = fmt.Errorf("unknown event kind %q", ev.Kind)
			}
			if err != nil {
				return fmt.Errorf("event %d: %w", i, err)
			}
		}

		time.Sleep(streamDrainDelay)

		if err := c.CloseSession(sessionID); err != nil {
			return err
		}

		printJson(commands.NewSuccessResponse(map[string]interface{}{
			"sessionId":     sessionID,
			"inputEvents":   len(events),
			"gestureEvents": received.Load(),
		}))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(streamCmd)

	// stream command flags
	streamCmd.Flags().StringVar(&streamServer, "server", defaultServerAddress, "address of the server to stream to")
	streamCmd.Flags().BoolVar(&streamFast, "fast", false, "skip pacing sleeps between events")
	streamCmd.Flags().StringVar(&configPath, "config", "", "path to a tuning file (INI)")
}
