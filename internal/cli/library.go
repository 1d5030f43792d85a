package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "List collections or videos",
	Long: `List the video library.

Subcommands:
  videos       List videos (default), filtered by --collection
  collections  List all collections with video counts

Examples:
  videorag library
  videorag library videos --collection ml-course
  videorag library collections`,
	RunE: runLibraryVideos,
}

var libraryVideosCmd = &cobra.Command{
	Use:   "videos",
	Short: "List videos",
	RunE:  runLibraryVideos,
}

var libraryCollectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List all collections with video counts",
	RunE:  runLibraryCollections,
}

func init() {
	libraryCmd.AddCommand(libraryVideosCmd)
	libraryCmd.AddCommand(libraryCollectionsCmd)
}

func runLibraryVideos(cmd *cobra.Command, args []string) error {
	// Only an explicit --collection filters, the configured default does not.
	var filter string
	if rootCmd.PersistentFlags().Changed("collection") {
		filter = collection
	}

	videos, err := application.Library.Videos(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("list videos: %w", err)
	}
	if len(videos) == 0 {
		fmt.Println("No videos found. Use 'videorag ingest' to add one.")
		return nil
	}

	fmt.Printf("%-14s %-16s %-8s %-9s %s\n", "ID", "COLLECTION", "INDEXED", "SEGMENTS", "TITLE")
	fmt.Println("------------------------------------------------------------------------")
	for _, v := range videos {
		ref := v.Ref()
		indexed := "no"
		if v.Indexed {
			indexed = "yes"
		}
		fmt.Printf("%-14s %-16s %-8s %-9d %s\n", ref.ID, truncate(ref.Collection, 16), indexed, v.SegmentCount, ref.Title)
	}
	fmt.Printf("\n%d videos\n", len(videos))
	return nil
}

func runLibraryCollections(cmd *cobra.Command, args []string) error {
	counts, err := application.Library.Collections(cmd.Context())
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	if len(counts) == 0 {
		fmt.Println("No collections found.")
		return nil
	}

	fmt.Printf("%-30s %s\n", "COLLECTION", "VIDEOS")
	fmt.Println("----------------------------------------")
	for _, c := range counts {
		fmt.Printf("%-30s %d\n", c.Name, c.Count)
	}
	return nil
}

// truncate shortens s to max runes, marking the cut with "…".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
