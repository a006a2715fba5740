package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quote-generator/internal/app"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	profile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "quotegen",
		Short:         "Dynamic quote generator with local persistence and remote sync",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	defaultProfile := os.Getenv("APP_ENVIRONMENT")
	if defaultProfile == "" {
		defaultProfile = "local"
	}

	root.PersistentFlags().StringVar(&opts.profile, "profile", defaultProfile, "config profile (configs/<profile>.yaml)")

	root.AddCommand(
		serveCmd(opts),
		exportCmd(opts),
		importCmd(opts),
		syncCmd(opts),
		randomCmd(opts),
	)

	return root
}

func serveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the page and JSON API and run the periodic sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func exportCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored quotes as indented JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := bootstrap(cmd.Context(), opts.profile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer c.Close()

			data, err := c.service.Export(cmd.Context())
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}

			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d quotes to %s\n", c.store.Len(), output)

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func importCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Append the quotes in a JSON file (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			c, err := bootstrap(cmd.Context(), opts.profile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.service.Import(cmd.Context(), data)
			if err != nil {
				return fmt.Errorf("import rejected, nothing was added: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Quotes imported successfully! Added %d, %d stored.\n", res.Imported, res.Total)

			return nil
		},
	}
}

func syncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle against the remote endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := bootstrap(cmd.Context(), opts.profile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.agent.SyncNow(cmd.Context())

			fmt.Fprintf(cmd.OutOrStdout(), "sync %s: %d quotes", res.Outcome, res.Count)
			if res.Outcome == app.SyncReplaced {
				fmt.Fprintf(cmd.OutOrStdout(), " (%s)", res.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout())

			return err
		},
	}
}

func randomCmd(opts *rootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Print a random quote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := bootstrap(cmd.Context(), opts.profile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer c.Close()

			display := c.service.RandomQuote(cmd.Context(), "", category)
			if display.Empty {
				fmt.Fprintln(cmd.OutOrStdout(), display.Message)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%q\n  Category: %s\n", display.Quote.Text, display.Quote.Category)

			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "category filter (default: the selected category)")

	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}

		return data, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no such file: %s", path)
	}

	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return data, nil
}
