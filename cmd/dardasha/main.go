package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/phvlvck/dardasha/pkg/client"
	"github.com/phvlvck/dardasha/pkg/logging"
	"github.com/phvlvck/dardasha/pkg/model"
	"github.com/phvlvck/dardasha/pkg/version"
	"github.com/phvlvck/dardasha/ui"
)

func main() {
	// Best-effort: a missing .env is the normal case.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		serverURL string
		logLevel  string
		logFormat string
	)

	cmd := &cobra.Command{
		Use:     "dardasha",
		Short:   "Dardasha real-time chat client",
		Version: version.String(),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := client.LoadSettings()

			// Flag over env var over settings file.
			serverURL = resolve(serverURL, "DARDASHA_SERVER_URL", settings.ServerURL)
			logLevel = resolve(logLevel, "DARDASHA_LOG_LEVEL", settings.LogLevel)
			logFormat = resolve(logFormat, "DARDASHA_LOG_FORMAT", settings.LogFormat)

			if err := logging.Setup(logging.Options{
				Level:  logLevel,
				Format: logFormat,
				Output: os.Stderr,
			}); err != nil {
				return err
			}

			wsURL, err := channelURL(serverURL)
			if err != nil {
				return err
			}

			store := client.NewSessionStore()
			api := client.NewAPIClient(serverURL)
			dial := func(sess model.Session) (client.EventChannel, error) {
				return client.DialChannel(wsURL, sess.Token)
			}

			ui.NewApp(client.NewEngine(store, api, dial)).Run()
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server-url", "", "chat server base URL (default "+client.DefaultServerURL+")")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default info)")
	cmd.Flags().StringVar(&logFormat, "log-format", "", "log format: text or json (default text)")
	return cmd
}

// resolve picks the first non-empty of flag, env var, and settings value.
func resolve(flag, envKey, setting string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return setting
}

// channelURL derives the websocket event endpoint from the server base URL.
func channelURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("server url %q: scheme must be http or https", serverURL)
	}
	u.Path = "/ws"
	return u.String(), nil
}
