package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/raphaelgruber/videorag-go/internal/models"
	"github.com/raphaelgruber/videorag-go/internal/service"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	ingestID    string
	ingestTitle string
	ingestURL   string
	ingestForce bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <transcript-file>",
	Short: "Register a video and index its transcript",
	Long: `Register a video in a collection and index its transcript.

The transcript may be SubRip (.srt), WebVTT (.vtt) or plain text with
optional "[MM:SS]" line timestamps. Cues are grouped into segments and
embedded when an embedding provider is configured.

The video id defaults to the YouTube id of --url, then to the file name.
An already indexed video is left alone unless --force is given.

Examples:
  videorag ingest lecture.srt --url "https://youtu.be/dQw4w9WgXcQ"
  videorag ingest notes.txt --id intro-ml --title "Intro to ML" --collection courses
  videorag ingest lecture.vtt --id intro-ml --force`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "video id")
	ingestCmd.Flags().StringVarP(&ingestTitle, "title", "t", "", "video title")
	ingestCmd.Flags().StringVarP(&ingestURL, "url", "u", "", "video source URL")
	ingestCmd.Flags().BoolVarP(&ingestForce, "force", "f", false, "re-index an already indexed video")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	req := service.IngestRequest{
		Video: models.VideoInput{
			ID:         ingestID,
			Title:      ingestTitle,
			Collection: cfg.Collection,
		},
		Filename: filepath.Base(path),
		Content:  string(content),
		Force:    ingestForce,
	}
	if ingestURL != "" {
		req.Video.SourceURL = &ingestURL
	}
	if req.Video.ID == "" && ingestURL == "" {
		req.Video.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		result, err := application.Ingest.Ingest(ctx, req, nil)
		if err != nil {
			return err
		}
		fmt.Print(formatIngestResult(defaultTheme, result))
		return nil
	}

	job := application.Jobs.Start(ctx, req)
	return RunJobProgress(job)
}
