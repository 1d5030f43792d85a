package cli

import (
	"fmt"

	"github.com/raphaelgruber/videorag-go/internal/llm"
	"github.com/raphaelgruber/videorag-go/internal/render"
	"github.com/raphaelgruber/videorag-go/internal/service"
	"github.com/spf13/cobra"
)

var askNoStream bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the active video",
	Long: `Ask a question and get an answer grounded in the video's transcript.

The best matching segments are sent to the configured AI provider, which
answers briefly and cites the best timestamp. With --provider none, or
when the provider fails, the best matching segment is shown instead.

Examples:
  videorag ask "what is overfitting?" --video dQw4w9WgXcQ
  videorag ask "why lower the learning rate?" --video dQw4w9WgXcQ -p groq`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askNoStream, "no-stream", false, "print the answer only when complete")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := currentSession(ctx)
	if err != nil {
		return err
	}

	var answer *service.Answer
	streamed := false
	if llm.Enabled(sess.Provider) && !askNoStream {
		answer, err = application.Query.AskStream(ctx, sess, args[0], func(token string) error {
			streamed = true
			fmt.Print(token)
			return nil
		})
	} else {
		answer, err = application.Query.Ask(ctx, sess, args[0])
	}
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}
	printAnswer(answer, streamed)
	return nil
}

func printAnswer(answer *service.Answer, streamed bool) {
	theme := defaultTheme
	if streamed && answer.FromAI {
		fmt.Println()
	} else {
		if answer.Message != "" {
			fmt.Println(theme.hintStyle().Render(answer.Message))
			fmt.Println()
		}
		if answer.Text != "" {
			fmt.Println(answer.Text)
		}
	}

	if len(answer.Segments) == 0 {
		return
	}
	fmt.Println()
	fmt.Println(theme.headingStyle().Render("Top matches"))
	fmt.Println(render.ResultsTable(answer.Segments, cfg.PreviewChars))
	if answer.PlayerURL != "" {
		fmt.Printf("\nWatch: %s\n", answer.PlayerURL)
	}
}
