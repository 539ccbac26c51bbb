package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/smazurov/rpirtspd/internal/api/models"
	"github.com/smazurov/rpirtspd/internal/control"
	"github.com/smazurov/rpirtspd/internal/logging"
	"github.com/smazurov/rpirtspd/internal/nats"
	"github.com/smazurov/rpirtspd/internal/version"
	"github.com/spf13/cobra"
)

// ControlTarget is where the control command sends its command. It is
// resolved after the configuration file has been loaded.
type ControlTarget struct {
	Listen   string // HTTP listen address of the daemon, e.g. ":8090"
	Username string
	Password string
	NatsURL  string
}

// CreateControlCmd creates the control command.
func CreateControlCmd(target func() ControlTarget) *cobra.Command {
	var useNats bool
	var serverURL string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "control [command]",
		Short: "Send a configuration command to a running daemon",
		Long: `Sends a configuration command such as "main bitrate=500000 audio1 max-size-time=100000000" ` +
			`to the running daemon over its HTTP API, or over NATS with --nats, and prints the outcome of every directive.`,
		Example: `  rpirtspd control "main bitrate=500000"
  rpirtspd control --nats "video width=640 height=480"
  rpirtspd control reset`,
		Args: cobra.MinimumNArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			command := strings.Join(args, " ")
			t := target()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			var outcomes []control.Outcome
			var err error
			if useNats {
				outcomes, err = sendNats(ctx, t.NatsURL, command)
			} else {
				if serverURL == "" {
					serverURL = BaseURL(t.Listen)
				}
				outcomes, err = sendHTTP(ctx, serverURL, t, command)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			fmt.Print(FormatOutcomes(outcomes))
			for _, o := range outcomes {
				if o.Error != "" {
					os.Exit(2)
				}
			}
		},
	}

	cmd.Flags().BoolVar(&useNats, "nats", false, "Send the command over NATS instead of HTTP")
	cmd.Flags().StringVar(&serverURL, "url", "", "Base URL of the HTTP API (default derived from --port)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Request timeout")
	return cmd
}

// BaseURL turns a listen address into a URL reachable from this host.
func BaseURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		host, port = "", strings.TrimPrefix(listen, ":")
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "8090"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func sendHTTP(ctx context.Context, baseURL string, t ControlTarget, command string) ([]control.Outcome, error) {
	body, err := json.Marshal(models.ControlRequestData{Command: command})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/control", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Control-Source", "cli")
	if t.Username != "" {
		req.SetBasicAuth(t.Username, t.Password)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable at %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("control request failed: %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	var data models.ControlData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return data.Results, nil
}

func sendNats(ctx context.Context, url, command string) ([]control.Outcome, error) {
	if url == "" {
		return nil, errors.New("no NATS URL configured (set nats.url or --nats-url)")
	}
	client, err := nats.NewControlClient(url, logging.GetLogger("nats"))
	if err != nil {
		return nil, err
	}
	defer client.Close()

	reply, err := client.Send(ctx, command)
	if err != nil {
		return nil, err
	}
	return reply.Results, nil
}

// FormatOutcomes renders one line per directive.
func FormatOutcomes(outcomes []control.Outcome) string {
	var b strings.Builder
	for _, o := range outcomes {
		switch o.Kind {
		case "set":
			target := o.Stream
			if o.Role != "" {
				target += "/" + o.Role
			}
			if target == "" {
				target = "-"
			}
			fmt.Fprintf(&b, "%-8s %s=%s on %s: %s", o.Kind, o.Key, o.Value, target, o.Outcome)
			if o.Recorded {
				b.WriteString(" (stored)")
			}
		case "select":
			fmt.Fprintf(&b, "%-8s %s", o.Kind, o.Token)
		default:
			fmt.Fprintf(&b, "%-8s %s: %s", o.Kind, o.Token, o.Outcome)
		}
		if o.Error != "" {
			fmt.Fprintf(&b, " (%s)", o.Error)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
