package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	deleteForce bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <video-id>",
	Short: "Delete a video from the library",
	Long: `Delete a video from the library.

This also deletes its transcript segments and search index.
Requires confirmation unless --force is used.

Examples:
  videorag delete dQw4w9WgXcQ
  videorag delete dQw4w9WgXcQ --force`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip confirmation")
}

func runDelete(cmd *cobra.Command, args []string) error {
	id := args[0]
	ctx := cmd.Context()

	// Resolve the video first so the prompt can show its title
	sess, err := application.Library.Load(ctx, application.NewSession(), id, "")
	if err != nil {
		return err
	}

	// Confirm deletion
	if !deleteForce {
		fmt.Printf("About to delete: %s (%s)\n", sess.Video.Title, sess.Video.ID)
		fmt.Print("\nContinue? [y/N]: ")

		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))

		if response != "y" && response != "yes" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	deleted, err := application.Library.Delete(ctx, sess.Video.ID)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if !deleted {
		return fmt.Errorf("video not found or already deleted")
	}

	fmt.Printf("Deleted: %s\n", sess.Video.ID)
	return nil
}
