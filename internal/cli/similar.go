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
		Use:   "similar [query]",
		Short: "Rank learned facts by similarity to a query",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSimilar,
	}

	cmd.Flags().IntP("k", "k", memory.DefaultSimilarityK, "Max results")
	cmd.Flags().Float64P("threshold", "t", 0, "Only return scores above this")

	RootCmd.AddCommand(cmd)
}

func runSimilar(cmd *cobra.Command, args []string) {
	k, _ := cmd.Flags().GetInt("k")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	query := strings.Join(args, " ")

	e, s, _ := openEngine(cmd.Context())
	defer s.Close()

	results := e.SimilaritySearch(cmd.Context(), query, k, threshold)
	if results == nil {
		results = []memory.ScoredSubject{}
	}

	printOut(results, func(w io.Writer) {
		for _, r := range results {
			fmt.Fprintf(w, "%.3f  %s: %s\n", r.Score, r.Subject, r.Fact)
		}
	})
}
