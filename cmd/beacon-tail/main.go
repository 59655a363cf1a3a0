// beacon-tail subscribes to Beacon channels and prints every delivered event
// as one JSON line, for debugging fan-out from the command line.
//
//	beacon-tail --url ws://localhost:8080/ws --secret "$BEACON_JWT_SECRET" --user 1 \
//	    --channel private-user.1.projects --channel private-project.9
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/gosuda/beacon/internal/auth"
	"github.com/gosuda/beacon/internal/channel"
	"github.com/gosuda/beacon/internal/client"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type line struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

func run() error {
	var (
		url      string
		token    string
		secret   string
		issuer   string
		userID   int64
		channels []string
		verbose  bool
	)

	flagSet := pflag.NewFlagSet("beacon-tail", pflag.ContinueOnError)
	flagSet.StringVar(&url, "url", "ws://localhost:8080/ws", "WebSocket endpoint")
	flagSet.StringVar(&token, "token", "", "access token (default: mint one with --secret)")
	flagSet.StringVar(&secret, "secret", os.Getenv("BEACON_JWT_SECRET"), "JWT secret used to mint a token for --user")
	flagSet.StringVar(&issuer, "issuer", "beacon", "issuer of minted tokens")
	flagSet.Int64Var(&userID, "user", 0, "user to connect as; that user's own events are not printed")
	flagSet.StringArrayVarP(&channels, "channel", "c", nil, "channel to subscribe to (repeatable)")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log connection details to stderr")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	parsed, err := parseChannels(channels)
	if err != nil {
		return err
	}

	if token == "" {
		if secret == "" || userID <= 0 {
			return errors.New("either --token or both --secret and --user are required")
		}
		if token, err = auth.IssueAccessToken(secret, issuer, userID, time.Hour); err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m := client.NewManager(userID)
	conn, err := client.Dial(ctx, url, token, m)
	if err != nil {
		return err
	}
	defer conn.Close()

	out := json.NewEncoder(os.Stdout)
	printer := client.HandlerFunc(func(e client.Event) {
		if encErr := out.Encode(line{Event: e.Name, Channel: e.Channel, Data: e.Data}); encErr != nil {
			log.Error().Err(encErr).Msg("write event")
		}
	})

	for _, ch := range parsed {
		if _, err := m.Subscribe(ctx, ch, printer); err != nil {
			return err
		}
		log.Debug().Str("channel", ch.Name()).Msg("subscribing")
	}

	select {
	case <-ctx.Done():
		return nil
	case <-conn.Done():
		return conn.Err()
	}
}

func parseChannels(names []string) ([]channel.Channel, error) {
	if len(names) == 0 {
		return nil, errors.New("at least one --channel is required")
	}
	out := make([]channel.Channel, 0, len(names))
	for _, name := range names {
		ch, err := channel.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("--channel %q: %w", name, err)
		}
		out = append(out, ch)
	}
	return out, nil
}
