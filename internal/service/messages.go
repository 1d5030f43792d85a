package service

import "fmt"

// User-facing messages returned alongside partial or fallback results.
const (
	MsgNoMatches         = "No matches. Try simpler words like overview, definition, or example."
	MsgAIOff             = "AI is off. Showing the top matching segment."
	MsgQuizBasic         = "AI is off or context is empty. Showing basic prompts you can copy."
	MsgAIFailed          = "AI failed. Try again or switch provider."
	MsgNoReel            = "No segments found for a reel. Try different topics."
	MsgStitchFallback    = "Could not generate stitched stream. Showing first match instead."
	MsgTranscriptMissing = "Transcript not available yet."
)

const askPrompt = "Answer briefly using the lines with timestamps. End with the best timestamp.\n\n" +
	"Question: %s\n\nContext:\n%s\n"

const quizInstructions = "Create %d multiple choice questions from the context lines. " +
	"Each item should have question, 4 options A-D, correct letter, and the timestamp. " +
	"Return as markdown with headings."

// AskPrompt builds the answer prompt from a question and "timestamp: text" context lines.
func AskPrompt(question, context string) string {
	return fmt.Sprintf(askPrompt, question, context)
}

// QuizInstructions is the system prompt asking for n questions. The context
// lines go in the user prompt.
func QuizInstructions(n int) string {
	return fmt.Sprintf(quizInstructions, n)
}
