package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/roach88/playerdata"
	"github.com/roach88/playerdata/ir"
	"github.com/roach88/playerdata/storage"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	From   string
	To     string
	Indent int
}

// ConvertResult is the JSON payload of a successful conversion.
type ConvertResult struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	From   string `json:"from"`
	To     string `json:"to"`
	Bytes  int    `json:"bytes"`
	Digest string `json:"digest"`
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{}

	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Convert a document between JSON, XML and YAML",
		Long: `Convert a document file to another format.

Formats are taken from the file extensions unless --from or --to is given.
Use "-" as <out> to print the converted document instead of writing a file.
The output file is replaced atomically.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(rootOpts, opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "input format (json|xml|yaml)")
	cmd.Flags().StringVar(&opts.To, "to", "", "output format (json|xml|yaml)")
	cmd.Flags().IntVar(&opts.Indent, "indent", -1, "indentation width; defaults to output.indent from config")

	return cmd
}

func runConvert(rootOpts *RootOptions, opts *ConvertOptions, in, out string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	to, err := pickFormat(opts.To, out)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, err)
	}

	indent := opts.Indent
	if indent < 0 {
		cfg, _, cleanup, err := openConfig(rootOpts, cmd.ErrOrStderr())
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
		}
		cleanup()
		indent = cfg.Output.Indent
	}

	doc, from, err := readDocumentFile(in, opts.From)
	if err != nil {
		return formatter.Report(err)
	}
	formatter.VerboseLog("Parsed %s as %s", in, from)

	data, err := to.Render(doc, indent)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	if out == "-" {
		if _, err := formatter.Writer.Write(data); err != nil {
			return err
		}
		return nil
	}

	if err := writeFileAtomic(cmd, out, data); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err)
	}

	digest, err := ir.Digest(doc)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(ConvertResult{
			Input:  in,
			Output: out,
			From:   from.String(),
			To:     to.String(),
			Bytes:  len(data),
			Digest: digest,
		})
	}
	return formatter.Success(fmt.Sprintf("✓ %s (%s) -> %s (%s)", in, from, out, to))
}

// pickFormat returns the format named by flag, or the one implied by
// path's extension.
func pickFormat(flag, path string) (playerdata.Format, error) {
	if flag != "" {
		return playerdata.ParseFormat(flag)
	}
	if path == "-" {
		return 0, errors.New("--to is required when writing to stdout")
	}
	return playerdata.FormatOf(path)
}

// readDocumentFile parses a document file from disk.
func readDocumentFile(path, format string) (ir.Node, playerdata.Format, error) {
	f, err := pickFormat(format, path)
	if err != nil {
		return nil, 0, WrapExitError(ExitCommandError, ErrCodeUsage, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, WrapExitError(ExitCommandError, ErrCodeNotFound, errors.Newf("file not found: %s", path))
		}
		return nil, 0, WrapExitError(ExitCommandError, ErrCodeGeneric, err)
	}
	doc, err := f.Parse(data)
	if err != nil {
		return nil, 0, WrapExitError(ExitCommandError, ErrCodeInvalidInput, err)
	}
	return doc, f, nil
}

// writeFileAtomic replaces path through a LocalStore rooted at its
// directory, so a failed write never leaves a partial file.
func writeFileAtomic(cmd *cobra.Command, path string, data []byte) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir, base := filepath.Split(abs)
	return storage.NewLocalStore(dir).Write(cmd.Context(), base, data)
}
