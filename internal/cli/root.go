// Package cli provides the command-line interface for videorag.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/raphaelgruber/videorag-go/internal/app"
	"github.com/raphaelgruber/videorag-go/internal/client"
	"github.com/raphaelgruber/videorag-go/internal/config"
	"github.com/raphaelgruber/videorag-go/internal/session"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configFile string
	videoID    string
	collection string
	provider   string
	topK       int
	serverURL  string

	// Global config and wired services
	cfg         config.Config
	application *app.App
	closeLog    func() error
	apiClient   *client.Client
)

// remoteCommand marks commands that talk to a running server instead of the database.
var remoteCommand = map[string]string{"remote": "true"}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "videorag",
	Short: "Search, question and quiz educational videos by their transcripts",
	Long: `Videorag indexes video transcripts and answers questions about them.

Every answer points back to the moment in the video it came from: search
returns ranked transcript segments with timestamps, ask and quiz use an
optional AI provider over the best segments, and reel stitches the
best moments of several topics into one highlight reel.

Examples:
  videorag ingest lecture.srt --url "https://youtu.be/dQw4w9WgXcQ"
  videorag search "gradient descent" --video dQw4w9WgXcQ
  videorag ask "what is overfitting?" --video dQw4w9WgXcQ --provider gemini`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		if cmd.Annotations["remote"] == "true" {
			apiClient = client.New(serverURL)
			return nil
		}

		var err error
		if configFile != "" {
			cfg, err = config.LoadFile(configFile)
			if err != nil {
				return err
			}
		} else {
			cfg = config.Load()
		}
		applyFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}

		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}
		var logger *slog.Logger
		logger, closeLog = config.LoggerFor(cfg)
		slog.SetDefault(logger)

		application, err = app.New(cmd.Context(), cfg, logger)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if application != nil {
			if err := application.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if closeLog != nil {
			_ = closeLog()
		}
	},
}

// applyFlags overrides config with explicitly set global flags.
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("collection") {
		cfg.Collection = collection
	}
	if flags.Changed("provider") {
		cfg.LLMProvider = strings.ToLower(provider)
	}
	if flags.Changed("top-k") {
		cfg.TopK = topK
	}
}

// currentSession builds the session for this invocation and loads --video into it.
func currentSession(ctx context.Context) (session.Session, error) {
	sess := application.NewSession()
	if videoID == "" {
		return sess, nil
	}
	var scope string
	if rootCmd.PersistentFlags().Changed("collection") {
		scope = collection
	}
	return application.Library.Load(ctx, sess, videoID, scope)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&videoID, "video", "", "id of the video to work on")
	rootCmd.PersistentFlags().StringVar(&collection, "collection", "", "collection name")
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "AI provider (none, gemini, openai, groq, anthropic, ollama, bedrock)")
	rootCmd.PersistentFlags().IntVarP(&topK, "top-k", "k", 0, "number of segments to return (1-10)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL for stats and jobs (default $VIDEORAG_SERVER_URL)")

	// Add subcommands
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(reelCmd)
	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(libraryCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(jobsCmd)
}
