package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/playerdata/ir"
)

// DigestEntry is one line of digest output.
type DigestEntry struct {
	File   string `json:"file"`
	Format string `json:"format"`
	Digest string `json:"digest"`
}

// NewDigestCommand creates the digest command.
func NewDigestCommand(rootOpts *RootOptions) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "digest <file>...",
		Short: "Print the content digest of document files",
		Long: `Print the content digest of each document file.

The digest is computed over the canonical form of the document tree, so a
JSON file and its XML or YAML conversion report the same digest.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(rootOpts, from, args, cmd)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input format (json|xml|yaml); defaults to the file extension")
	return cmd
}

func runDigest(opts *RootOptions, from string, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	entries := make([]DigestEntry, 0, len(files))
	for _, file := range files {
		doc, f, err := readDocumentFile(file, from)
		if err != nil {
			return formatter.Report(err)
		}
		digest, err := ir.Digest(doc)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, err)
		}
		entries = append(entries, DigestEntry{File: file, Format: f.String(), Digest: digest})
	}

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}
	for _, e := range entries {
		fmt.Fprintf(formatter.Writer, "%s  %s\n", e.Digest, e.File)
	}
	return nil
}
