package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/kernel-memory/internal/memory"
)

func init() {
	nsCmd := &cobra.Command{
		Use:   "ns",
		Short: "Namespace management",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all namespaces",
		Args:  cobra.NoArgs,
		Run:   runNSList,
	}

	nsCmd.AddCommand(listCmd)
	RootCmd.AddCommand(nsCmd)
}

func runNSList(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	s, err := openStore(cmd.Context(), cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rows, err := memory.ListNamespaces(cmd.Context(), s)
	if err != nil {
		exitErr("list namespaces", err)
	}
	if rows == nil {
		rows = []memory.NamespaceStats{}
	}

	printOut(rows, func(w io.Writer) {
		for _, r := range rows {
			name := r.NS
			if name == "" {
				name = "(default)"
			}
			fmt.Fprintf(w, "%s\t%s\n", name, strings.Join(r.Blobs, ","))
		}
	})
}
