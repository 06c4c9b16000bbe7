package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/noah-isme/studyrooms-api/pkg/client"
)

var (
	settings = viper.New()
	logger   = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	rootCmd = &cobra.Command{
		Use:           "roomsctl",
		Short:         "Command-line client for the study rooms API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if settings.GetBool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}
)

func init() {
	settings.SetEnvPrefix("ROOMSCTL")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.String("api-url", "http://localhost:8000", "base URL of the REST API")
	flags.String("ws-url", "ws://localhost:8000/ws", "URL of the realtime websocket")
	flags.String("token-file", defaultTokenFile(), "where the session token is kept")
	flags.Bool("verbose", false, "log request diagnostics")
	for _, name := range []string{"api-url", "ws-url", "token-file", "verbose"} {
		_ = settings.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, whoamiCmd, roomsCmd, postsCmd, doubtsCmd, watchCmd)
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "roomsctl", "token")
}

// session bundles what every command needs: an API client that carries the stored token
// and the session store that persists it.
type session struct {
	api    *client.Client
	tokens client.FileTokenStore
	store  *client.SessionStore
}

func openSession() (*session, error) {
	tokens := client.FileTokenStore{Path: settings.GetString("token-file")}
	api := client.New(settings.GetString("api-url"), client.WithLogger(logger))
	api.OnUnauthenticated(func() {
		if err := tokens.Clear(); err != nil {
			logger.Warn().Err(err).Msg("failed to clear stored token")
			return
		}
		logger.Warn().Msg("session rejected by the server; stored token removed")
	})

	token, err := tokens.Load()
	if err != nil {
		return nil, err
	}
	api.SetToken(token)

	return &session{api: api, tokens: tokens, store: client.NewSessionStore(api, tokens)}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}
