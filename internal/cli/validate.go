package cli

import (
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/roach88/playerdata/jsondoc"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	Schema string
	Def    string
	From   string
}

// ValidationIssue is one schema violation.
type ValidationIssue struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	File   string            `json:"file"`
	Valid  bool              `json:"valid"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a document against a CUE schema",
		Long: `Check a JSON, XML or YAML document against a CUE schema.

The document is converted to its tree form and unified with the schema
(or with the definition named by --def). Every field must end up concrete.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "CUE schema file (required)")
	cmd.Flags().StringVar(&opts.Def, "def", "", "path of the schema value to validate against, e.g. #Save")
	cmd.Flags().StringVar(&opts.From, "from", "", "input format (json|xml|yaml); defaults to the file extension")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func runValidate(rootOpts *RootOptions, opts *ValidateOptions, file string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	schemaSrc, err := os.ReadFile(opts.Schema)
	if err != nil {
		if os.IsNotExist(err) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, errors.Newf("schema not found: %s", opts.Schema))
		}
		return formatter.Fail(ExitCommandError, ErrCodeSchema, err)
	}

	doc, _, err := readDocumentFile(file, opts.From)
	if err != nil {
		return formatter.Report(err)
	}
	data, err := jsondoc.Render(doc)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSrc, cue.Filename(opts.Schema))
	if err := schema.Err(); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSchema, err)
	}
	if opts.Def != "" {
		schema = schema.LookupPath(cue.ParsePath(opts.Def))
		if !schema.Exists() {
			return formatter.Fail(ExitCommandError, ErrCodeSchema,
				errors.Newf("%s not found in %s", opts.Def, opts.Schema))
		}
	}
	formatter.VerboseLog("Loaded schema %s", opts.Schema)

	value := ctx.CompileBytes(data, cue.Filename(file))
	if err := value.Err(); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	if err := schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return outputValidationErrors(formatter, file, issuesOf(err))
	}
	return outputValidateSuccess(formatter, file)
}

// issuesOf flattens a CUE error list.
func issuesOf(err error) []ValidationIssue {
	list := cueerrors.Errors(err)
	issues := make([]ValidationIssue, 0, len(list))
	for _, e := range list {
		format, args := e.Msg()
		issues = append(issues, ValidationIssue{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
			Line:    lineOf(e.Position()),
		})
	}
	if len(issues) == 0 {
		issues = append(issues, ValidationIssue{Message: err.Error()})
	}
	return issues
}

// lineOf extracts the line number from a token.Pos.
func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, file string) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{File: file, Valid: true})
	}
	fmt.Fprintf(formatter.Writer, "✓ %s is valid\n", file)
	return nil
}

// outputValidationErrors outputs every violation and returns an ExitFailure
// error.
func outputValidationErrors(formatter *OutputFormatter, file string, issues []ValidationIssue) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{File: file, Errors: issues},
			Error: &CLIError{
				Code:    ErrCodeInvalidInput,
				Message: issues[0].Message,
			},
		}
		if err := jsonAPI.NewEncoder(formatter.Writer).Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	fmt.Fprintf(formatter.Writer, "✗ %s does not match the schema\n\n", file)
	for _, issue := range issues {
		if issue.Path != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", issue.Path, issue.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s\n", issue.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}
