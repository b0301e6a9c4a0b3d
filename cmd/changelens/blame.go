package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"changelens/internal/changes"
	"changelens/internal/errors"
)

var (
	blameRange   string
	blameRef     string
	blameSummary bool
)

var blameCmd = &cobra.Command{
	Use:   "blame <path>",
	Short: "Attribute lines of a file to commits and authors",
	Long: `Attribute each line of a file to the commit that last changed it.

Examples:
  changelens blame internal/server.go
  changelens blame internal/server.go -L 10,40 --ref HEAD~3
  changelens blame README.md --summary`,
	Args: cobra.ExactArgs(1),
	RunE: runBlame,
}

func init() {
	blameCmd.Flags().StringVarP(&blameRange, "lines", "L", "", "Line range start,end (1-based, inclusive; either side may be omitted)")
	blameCmd.Flags().StringVar(&blameRef, "ref", "", "Revision to blame at (default: working tree)")
	blameCmd.Flags().BoolVar(&blameSummary, "summary", false, "Add per-author ownership shares")
	rootCmd.AddCommand(blameCmd)
}

func runBlame(cmd *cobra.Command, args []string) error {
	start, end, err := parseLineRange(blameRange)
	if err != nil {
		return fail(err)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	result, err := a.svc.Blame(ctx, changes.BlameOptions{
		Path:      args[0],
		Ref:       blameRef,
		StartLine: start,
		EndLine:   end,
		Summarize: blameSummary,
	})
	if err != nil {
		return fail(err)
	}
	return emit(result, changes.Provenance(nil, "git"), func(w io.Writer) error {
		return formatBlameHuman(w, result)
	})
}

// parseLineRange parses "s,e", "s," or ",e". A bare "s" means s to the end
// of the file. Zero means unbounded.
func parseLineRange(arg string) (start, end int, err error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return 0, 0, nil
	}

	startStr, endStr, _ := strings.Cut(arg, ",")
	if start, err = parseLine(startStr); err != nil {
		return 0, 0, err
	}
	if end, err = parseLine(endStr); err != nil {
		return 0, 0, err
	}
	if start == 0 && end == 0 {
		return 0, 0, errors.NewInvalidParameterError("lines", fmt.Sprintf("%q names no line", arg))
	}
	if end != 0 && start > end {
		return 0, 0, errors.NewInvalidParameterError("lines", fmt.Sprintf("start %d is after end %d", start, end))
	}
	return start, end, nil
}

func parseLine(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, errors.NewInvalidParameterError("lines", fmt.Sprintf("%q is not a positive line number", s))
	}
	return n, nil
}
