package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/kernel-memory/internal/model"
)

// printOut writes v in the selected --format. text renders the human form;
// when nil, text falls back to JSON.
func printOut(v any, text func(w io.Writer)) {
	switch formatFlag {
	case "yaml":
		b, err := yaml.Marshal(v)
		if err != nil {
			exitErr("encode yaml", err)
		}
		os.Stdout.Write(b)
	case "text":
		if text != nil {
			text(os.Stdout)
			return
		}
		fallthrough
	default:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			exitErr("encode json", err)
		}
		fmt.Println(string(b))
	}
}

func printEntries(entries []model.ChatEntry) {
	if entries == nil {
		entries = []model.ChatEntry{}
	}
	printOut(entries, func(w io.Writer) {
		for _, e := range entries {
			fmt.Fprintf(w, "[%s] %s: %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Role, e.Text)
		}
	})
}

func printSubjects(subjects []model.LearnedSubject) {
	if subjects == nil {
		subjects = []model.LearnedSubject{}
	}
	printOut(subjects, func(w io.Writer) {
		for _, s := range subjects {
			fmt.Fprintf(w, "%s: %s\n", s.Subject, s.Fact)
		}
	})
}

func printOK(fields map[string]any) {
	fields["ok"] = true
	printOut(fields, func(w io.Writer) {
		fmt.Fprintln(w, "ok")
	})
}

// argsOrStdin joins args, or reads piped stdin when there are none.
func argsOrStdin(args []string) string {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " "))
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return strings.TrimSpace(string(b))
	}
	return ""
}
