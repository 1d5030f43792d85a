package cli

import (
	"fmt"
	"os"

	"github.com/raphaelgruber/videorag-go/internal/models"
	"github.com/raphaelgruber/videorag-go/internal/service"
	"github.com/raphaelgruber/videorag-go/internal/timestamp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var reelExport string

var reelCmd = &cobra.Command{
	Use:   "reel <topics>",
	Short: "Build a highlight reel from the best moments of several topics",
	Long: `Build a highlight reel for a comma-separated list of topics.

Each topic is searched separately. The best segments of all topics are
merged into one ordered timeline and sent to the stitching service. When
stitching is unavailable the reel falls back to an embedded player at
the first moment.

Use --export to write the timeline as YAML ("-" for stdout).

Examples:
  videorag reel "overfitting, regularization" --video dQw4w9WgXcQ
  videorag reel "loss, gradients" --video dQw4w9WgXcQ --export reel.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runReel,
}

func init() {
	reelCmd.Flags().StringVarP(&reelExport, "export", "e", "", "write the reel timeline as YAML to this file")
}

// reelDocument is the exported YAML shape of a reel.
type reelDocument struct {
	Video     string          `yaml:"video"`
	Topics    []string        `yaml:"topics"`
	Duration  int             `yaml:"duration"`
	Timeline  models.Timeline `yaml:"timeline"`
	StreamURL string          `yaml:"stream_url,omitempty"`
	PlayerURL string          `yaml:"player_url,omitempty"`
}

func runReel(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := currentSession(ctx)
	if err != nil {
		return err
	}

	reel, err := application.Query.Reel(ctx, sess, args[0])
	if err != nil {
		return fmt.Errorf("reel: %w", err)
	}
	if reel.Message != "" {
		fmt.Println(reel.Message)
	}
	if len(reel.Timeline) == 0 {
		return nil
	}

	if reelExport != "" {
		return exportReel(sess.Video.ID, reel)
	}

	theme := defaultTheme
	fmt.Println(theme.headingStyle().Render(fmt.Sprintf("Reel: %d moments, %s total", len(reel.Timeline), timestamp.Format(timestamp.Offset(reel.Duration)))))
	for i, e := range reel.Timeline {
		fmt.Printf("  %2d. %s - %s\n", i+1, timestamp.Format(timestamp.Offset(e.Start)), timestamp.Format(timestamp.Offset(e.End)))
	}
	fmt.Println()
	if reel.Fallback {
		fmt.Printf("Player: %s\n", reel.PlayerURL)
	} else {
		fmt.Printf("Stream: %s\n", reel.StreamURL)
	}
	return nil
}

func exportReel(videoID string, reel *service.Reel) error {
	data, err := yaml.Marshal(reelDocument{
		Video:     videoID,
		Topics:    reel.Topics,
		Duration:  reel.Duration,
		Timeline:  reel.Timeline,
		StreamURL: reel.StreamURL,
		PlayerURL: reel.PlayerURL,
	})
	if err != nil {
		return fmt.Errorf("marshal reel: %w", err)
	}

	if reelExport == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(reelExport, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", reelExport, err)
	}
	fmt.Printf("Exported %d moments to %s\n", len(reel.Timeline), reelExport)
	return nil
}
