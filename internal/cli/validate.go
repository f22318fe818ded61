package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/unistate/internal/harness"
)

// FileValidation is the validation result for one scenario file.
type FileValidation struct {
	Path   string   `json:"path"`
	Name   string   `json:"name,omitempty"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidationResult holds validation results for every file.
type ValidationResult struct {
	Files []FileValidation `json:"files"`
	Valid bool             `json:"valid"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files against the scenario schema.

Each file is checked against the embedded CUE schema, decoded strictly
(unknown fields are errors) and checked for semantic problems.

Exit codes:
  0 - All files are valid
  1 - One or more files are invalid or unreadable`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	result := ValidationResult{
		Files: make([]FileValidation, 0, len(paths)),
		Valid: true,
	}
	for _, path := range paths {
		fv := validateFile(path)
		f.VerboseLog("Validated %s: valid=%t", path, fv.Valid)
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if f.Format == "json" {
		if result.Valid {
			return f.Success(result)
		}
		if err := f.Failure(ErrCodeSchema, "validation failed", result); err != nil {
			return err
		}
	} else {
		writeValidateText(f, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func validateFile(path string) FileValidation {
	s, err := harness.LoadScenario(path)
	if err == nil {
		return FileValidation{Path: path, Name: s.Name, Valid: true}
	}

	fv := FileValidation{Path: path}
	var se *harness.SchemaError
	if errors.As(err, &se) {
		fv.Errors = se.Problems
	} else {
		fv.Errors = []string{err.Error()}
	}
	return fv
}

func writeValidateText(f *OutputFormatter, r ValidationResult) {
	w := f.Writer
	for _, fv := range r.Files {
		if fv.Valid {
			fmt.Fprintf(w, "ok   %s (%s)\n", fv.Path, fv.Name)
			continue
		}
		fmt.Fprintf(w, "FAIL %s\n", fv.Path)
		for _, msg := range fv.Errors {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}
}
