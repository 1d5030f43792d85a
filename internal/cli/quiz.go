package cli

import (
	"fmt"

	"github.com/raphaelgruber/videorag-go/internal/service"
	"github.com/spf13/cobra"
)

var quizQuestions int

var quizCmd = &cobra.Command{
	Use:   "quiz <topic>",
	Short: "Generate quiz questions about a topic in the active video",
	Long: `Generate multiple-choice questions from the segments that match a topic.

Without an AI provider, basic prompts pointing at the best segments are
listed instead.

Examples:
  videorag quiz "regularization" --video dQw4w9WgXcQ
  videorag quiz "gradient descent" --video dQw4w9WgXcQ -n 8 -p gemini`,
	Args: cobra.ExactArgs(1),
	RunE: runQuiz,
}

func init() {
	quizCmd.Flags().IntVarP(&quizQuestions, "questions", "n", service.DefaultQuizQuestions,
		fmt.Sprintf("number of questions (%d-%d)", service.MinQuizQuestions, service.MaxQuizQuestions))
}

func runQuiz(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := currentSession(ctx)
	if err != nil {
		return err
	}

	quiz, err := application.Query.Quiz(ctx, sess, args[0], quizQuestions)
	if err != nil {
		return fmt.Errorf("quiz: %w", err)
	}

	theme := defaultTheme
	if quiz.Message != "" {
		fmt.Println(theme.hintStyle().Render(quiz.Message))
		fmt.Println()
	}
	if quiz.FromAI {
		fmt.Println(quiz.Text)
		return nil
	}
	if quiz.Best != nil {
		fmt.Printf("%s %s (score %d%%)\n\n", theme.headingStyle().Render("Best match:"), quiz.Best.Timestamp, quiz.Best.Score)
	}
	for _, p := range quiz.Prompts {
		fmt.Println(p)
	}
	return nil
}
