package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"smartassist/cmd/assist/chat"
	"smartassist/internal/api"
	"smartassist/internal/config"
	"smartassist/internal/logging"
	"smartassist/internal/session"
	"smartassist/internal/stream"
)

var (
	// Global flags
	cfgPath string
	baseURL string
	debug   bool

	cfg      *config.Config
	sessions *session.Store
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "assist",
	Short: "Terminal client for the hosted Q&A assistant",
	Long: `assist is a terminal client for the hosted Q&A assistant.

Answers stream token by token over a WebSocket; conversations, their
history and the retrieval documents live server-side.

Run without arguments to start the interactive chat interface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgPath
		if path == "" {
			path = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		if debug {
			cfg.Logging.Debug = true
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logging.Initialize(cfg)
		sessions = session.NewStore(session.DefaultPath(config.Dir()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: launch the interactive chat
		sess, ok := sessions.Get()
		if !ok {
			return session.ErrNotAuthenticated
		}
		client := api.NewClient(cfg.BaseURL, sessions)
		dialer := stream.NewDialer(cfg.WebSocketURL(), sessions)
		return chat.RunChat(cfg, client, dialer, sess)
	},
}

// newClient builds an API client for one-shot subcommands.
func newClient() *api.Client {
	return api.NewClient(cfg.BaseURL, sessions)
}

// appVersion is overridden at build time via -ldflags.
var appVersion = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the client version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("assist %s\n", appVersion)
		fmt.Printf("runtime: %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default ~/.assist/config.json)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Backend base URL override")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "v", false, "Enable debug logging to the log file")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
