package cli

import (
	"fmt"

	"github.com/raphaelgruber/videorag-go/internal/render"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find the transcript segments that best match a query",
	Long: `Search the active video's transcript without AI synthesis.

Returns up to --top-k segments ranked by relevance, each with its
timestamp and a 0-100 score. Use 'ask' for an AI answer.

Examples:
  videorag search "gradient descent" --video dQw4w9WgXcQ
  videorag search "learning rate" --video dQw4w9WgXcQ -k 10`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := currentSession(ctx)
	if err != nil {
		return err
	}

	result, err := application.Query.Search(ctx, sess, args[0], 0)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if result.Message != "" {
		fmt.Println(result.Message)
		return nil
	}

	fmt.Printf("Found %d segments in %s:\n\n", len(result.Segments), sess.Video.ID)
	fmt.Println(render.ResultsTable(result.Segments, cfg.PreviewChars))
	return nil
}
