package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/kernel-memory/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [query]",
		Short: "Assemble relevant facts and recent history",
		Long:  "Rank learned facts by similarity to the query, then greedily pack them and the newest transcript entries into a token budget.",
		Run:   runContext,
	}

	cmd.Flags().IntP("budget", "b", 1000, "Max tokens in output")
	cmd.Flags().Int("recent", 20, "Max transcript entries to consider")
	cmd.Flags().IntP("k", "k", memory.DefaultSimilarityK, "Max facts")
	cmd.Flags().Float64P("threshold", "t", 0, "Only include facts scoring above this")

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	budget, _ := cmd.Flags().GetInt("budget")
	recent, _ := cmd.Flags().GetInt("recent")
	k, _ := cmd.Flags().GetInt("k")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	query := strings.Join(args, " ")

	e, s, _ := openEngine(cmd.Context())
	defer s.Close()

	result := e.Context(cmd.Context(), memory.ContextParams{
		Query:     query,
		Budget:    budget,
		Recent:    recent,
		K:         k,
		Threshold: threshold,
	})

	printOut(result, func(w io.Writer) {
		for _, f := range result.Facts {
			fmt.Fprintf(w, "fact %s: %s\n", f.Subject, f.Fact)
		}
		for _, h := range result.History {
			fmt.Fprintf(w, "%s: %s\n", h.Role, h.Text)
		}
	})
}
