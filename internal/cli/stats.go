package cli

import (
	"fmt"

	"github.com/raphaelgruber/videorag-go/internal/metrics"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server runtime statistics",
	Long: `Show the runtime statistics of a running videorag server.

Reads VIDEORAG_SERVER_URL or --server to find it.

Examples:
  videorag stats
  videorag stats --server http://localhost:9090`,
	Args:        cobra.NoArgs,
	Annotations: remoteCommand,
	RunE:        runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	stats, err := apiClient.GetServerStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("get server stats: %w", err)
	}
	printServerStats(stats)
	return nil
}

// printServerStats displays server runtime statistics.
func printServerStats(stats *metrics.Snapshot) {
	fmt.Printf("Server Statistics (in-memory, since restart)\n")
	fmt.Printf("═══════════════════════════════════════════════\n")
	fmt.Printf("Uptime: %.1f seconds\n", stats.UptimeSeconds)

	sections := []struct {
		name string
		op   *metrics.OperationSnapshot
	}{
		{"Index Search", stats.IndexSearch},
		{"Embeddings", stats.Embedding},
		{"LLM Generate", stats.LLMGenerate},
		{"LLM Stream", stats.LLMStream},
		{"Stitch", stats.Stitch},
	}
	for _, s := range sections {
		if s.op == nil {
			continue
		}
		fmt.Printf("\n%s:\n", s.name)
		printOpStats(s.op)
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(op *metrics.OperationSnapshot) {
	fmt.Printf("  Calls: %d, Failures: %d, Total: %dms\n", op.Count, op.Failures, op.TotalTimeMs)
	fmt.Printf("  Time: avg %.1fms, min %dms, max %dms\n", op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
}
