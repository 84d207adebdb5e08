package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/kernel-memory/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a session export",
		Long:  "Import a session from JSON or YAML (stdin or --file). Expects the format produced by export.",
		Args:  cobra.NoArgs,
		Run:   runImport,
	}

	cmd.Flags().String("file", "", "Read from file instead of stdin")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	file, _ := cmd.Flags().GetString("file")

	var (
		data []byte
		err  error
	)
	if file != "" {
		data, err = os.ReadFile(file)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read input", err)
	}

	snap, err := parseSnapshot(data)
	if err != nil {
		exitErr("parse snapshot", err)
	}

	e, s, _ := openEngine(cmd.Context())
	defer s.Close()

	res, err := e.Import(cmd.Context(), snap)
	if err != nil {
		exitErr("import", err)
	}

	printOK(map[string]any{"imported": res})
}

// parseSnapshot accepts JSON, falling back to YAML.
func parseSnapshot(data []byte) (*memory.Snapshot, error) {
	var snap memory.Snapshot
	if err := json.Unmarshal(data, &snap); err == nil {
		return &snap, nil
	}
	snap = memory.Snapshot{}
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
