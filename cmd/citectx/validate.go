package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/citectx/internal/parser"
	"github.com/dgallion1/citectx/internal/tei"
	"github.com/dgallion1/citectx/internal/validate"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate FILES...",
	Short: "Check TEI files against the structure citectx expects",
	Long: `Check each TEI file against the element nesting citectx expects and
report every violation found, then try a full parse.

Exit code 3 means at least one file is invalid.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	invalid := 0
	for _, path := range args {
		problems, warnings, err := validateFile(path)
		if err != nil {
			return withCode(ExitError, "%v", err)
		}
		if len(problems) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "ok\t%s\t(%d warnings)\n", path, warnings)
			continue
		}
		invalid++
		for _, p := range problems {
			fmt.Fprintf(cmd.OutOrStdout(), "invalid\t%s\t%s\n", path, p)
		}
	}
	if invalid > 0 {
		return withCode(ExitDataError, "%d of %d files invalid", invalid, len(args))
	}
	return nil
}

// validateFile returns every structural problem in the file and the number
// of non-fatal warnings a parse produced. A returned error means the file
// could not be read at all.
func validateFile(path string) ([]string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", path, err)
	}

	doc, err := tei.Parse(bytes.NewReader(data))
	if err != nil {
		return []string{err.Error()}, 0, nil
	}
	_, text := tei.Split(doc)
	if text == nil {
		return []string{"document has no text element"}, 0, nil
	}
	if err := validate.Validate(text); err != nil {
		return splitJoined(err), 0, nil
	}

	parsed, err := (&parser.TEIParser{}).Parse(bytes.NewReader(data), path)
	if err != nil {
		return []string{err.Error()}, 0, nil
	}
	return nil, parsed.Diagnostics.Len(), nil
}

func splitJoined(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
