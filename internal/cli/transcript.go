package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var transcriptOut string

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Show or save the active video's transcript",
	Long: `Show a preview of the active video's transcript, or save the full
transcript to a file with --out.

Examples:
  videorag transcript --video dQw4w9WgXcQ
  videorag transcript --video dQw4w9WgXcQ --out lecture.txt`,
	Args: cobra.NoArgs,
	RunE: runTranscript,
}

func init() {
	transcriptCmd.Flags().StringVarP(&transcriptOut, "out", "o", "", "write the full transcript to this file")
}

func runTranscript(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := currentSession(ctx)
	if err != nil {
		return err
	}

	view, err := application.Query.Transcript(ctx, sess)
	if err != nil {
		return fmt.Errorf("transcript: %w", err)
	}
	if view.Message != "" {
		fmt.Println(view.Message)
		return nil
	}

	if transcriptOut != "" {
		if err := os.WriteFile(transcriptOut, []byte(view.Full), 0644); err != nil {
			return fmt.Errorf("write %s: %w", transcriptOut, err)
		}
		fmt.Printf("Saved %d characters to %s\n", view.Chars, transcriptOut)
		return nil
	}

	fmt.Println(view.Preview)
	if view.Truncated {
		fmt.Println()
		fmt.Println(defaultTheme.hintStyle().Render(
			fmt.Sprintf("Showing a preview of %d characters. Use --out %s to save everything.", view.Chars, view.Filename)))
	}
	return nil
}
