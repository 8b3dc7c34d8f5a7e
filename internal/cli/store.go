package cli

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/roach88/playerdata"
	"github.com/roach88/playerdata/errs"
)

// withSession opens the configured store, reporting failures through the
// formatter.
func withSession(opts *RootOptions, cmd *cobra.Command, formatter *OutputFormatter, fn func(*session) error) error {
	sess, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
	if err != nil {
		return formatter.Report(err)
	}
	defer sess.close()
	return fn(sess)
}

// NewCatCommand creates the cat command.
func NewCatCommand(rootOpts *RootOptions) *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   "cat <name>",
		Short: "Print a stored document",
		Long: `Print a stored document, optionally converted to another format.

The stored format is taken from the name's extension (.json, .xml, .yaml).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCat(rootOpts, args[0], as, cmd)
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "output document format (json|xml|yaml); defaults to the stored format")
	return cmd
}

func runCat(opts *RootOptions, name, as string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	src, err := playerdata.FormatOf(name)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, err)
	}
	dst := src
	if as != "" {
		if dst, err = playerdata.ParseFormat(as); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeUsage, err)
		}
	}

	return withSession(opts, cmd, formatter, func(s *session) error {
		doc, err := s.store.ReadDocument(cmd.Context(), src, name)
		if err != nil {
			return formatter.Fail(exitCodeFor(err), ErrCodeStorage, err)
		}
		out, err := dst.Render(doc, s.cfg.Output.Indent)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		formatter.VerboseLog("Read %s as %s, printing as %s", name, src, dst)

		if formatter.Format == "json" {
			return formatter.Success(map[string]string{
				"name":     name,
				"format":   dst.String(),
				"document": string(out),
			})
		}
		w := formatter.Writer
		if _, err := w.Write(out); err != nil {
			return err
		}
		if !bytes.HasSuffix(out, []byte("\n")) {
			fmt.Fprintln(w)
		}
		return nil
	})
}

// NewLsCommand creates the ls command.
func NewLsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ls",
		Short:         "List stored documents",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, formatter, func(s *session) error {
				names, err := s.store.List(cmd.Context())
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeStorage, err)
				}
				if formatter.Format == "json" {
					if names == nil {
						names = []string{}
					}
					return formatter.Success(map[string]any{"names": names})
				}
				for _, name := range names {
					fmt.Fprintln(formatter.Writer, name)
				}
				return nil
			})
		},
	}
}

// NewExistsCommand creates the exists command. It exits with ExitFailure
// when the document is missing.
func NewExistsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "exists <name>",
		Short:         "Report whether a document is stored",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			name := args[0]
			return withSession(rootOpts, cmd, formatter, func(s *session) error {
				ok, err := s.store.HasFile(cmd.Context(), name)
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeStorage, err)
				}
				if formatter.Format == "json" {
					if err := formatter.Success(map[string]any{"name": name, "exists": ok}); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(formatter.Writer, ok)
				}
				if !ok {
					return NewExitError(ExitFailure, fmt.Sprintf("%s does not exist", name))
				}
				return nil
			})
		},
	}
}

// NewRmCommand creates the rm command.
func NewRmCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rm <name>...",
		Short:         "Delete stored documents",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			return withSession(rootOpts, cmd, formatter, func(s *session) error {
				for _, name := range args {
					if err := s.store.Delete(cmd.Context(), name); err != nil {
						return formatter.Fail(ExitCommandError, ErrCodeStorage, err)
					}
					formatter.VerboseLog("Deleted %s", name)
				}
				if formatter.Format == "json" {
					return formatter.Success(map[string]any{"removed": args})
				}
				return formatter.Success(fmt.Sprintf("Removed %d document(s)", len(args)))
			})
		},
	}
}

// NewWipeCommand creates the wipe command.
func NewWipeCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:           "wipe",
		Short:         "Delete every stored document",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			if !yes {
				return formatter.Fail(ExitCommandError, ErrCodeUsage,
					errors.New("refusing to wipe without --yes"))
			}
			return withSession(rootOpts, cmd, formatter, func(s *session) error {
				if err := s.store.Wipe(cmd.Context()); err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeStorage, err)
				}
				return formatter.Success("Wiped " + s.cfg.Identifier)
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting everything in the store")
	return cmd
}

// exitCodeFor maps read failures: a missing document is a negative answer,
// anything else a command error.
func exitCodeFor(err error) int {
	if errs.IsFileNotFound(err) {
		return ExitFailure
	}
	return ExitCommandError
}
