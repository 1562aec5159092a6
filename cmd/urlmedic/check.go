package main

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hazz-dev/urlmedic/internal/checker"
	"github.com/hazz-dev/urlmedic/internal/report"
	"github.com/hazz-dev/urlmedic/internal/urllist"
)

var errNoInput = errors.New("no input: pass a url list file or pipe urls on stdin")

type checkOptions struct {
	output      string
	compare     string
	concurrency int
	timeout     time.Duration
	userAgent   string
}

func checkCmd() *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Check every URL in a list once",
		Long: `Check every URL in a list once, printing a line per URL as it completes.

The list is read from file, or from stdin when it is not a terminal. Lines
starting with http:// or https:// are URLs; everything else is ignored. An
optional YAML front matter block sets cookies sent with every request:

  ---
  cookies:
    - Location=nz
  ---
  https://example.com/`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "write results as JSON to this file")
	f.StringVarP(&opts.compare, "compare", "p", "", "compare with results previously written by --output")
	f.IntVarP(&opts.concurrency, "concurrency", "c", checker.DefaultConcurrency, "maximum number of requests in flight")
	f.DurationVar(&opts.timeout, "timeout", checker.DefaultTimeout, "per-URL timeout, redirects included (negative disables)")
	f.StringVar(&opts.userAgent, "user-agent", checker.DefaultUserAgent, "User-Agent header sent with every request")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string, opts checkOptions) error {
	logger := newLogger(cmd, slog.LevelWarn)

	list, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	if len(list.URLs) == 0 {
		logger.Warn("no urls found in input")
	}

	// Load the comparison file first so a bad path fails before any request.
	var previous checker.Set
	if opts.compare != "" {
		previous, err = report.ReadFile(opts.compare)
		if err != nil {
			return err
		}
	}

	runner := checker.NewRunner(checker.Config{
		Concurrency: opts.concurrency,
		Timeout:     opts.timeout,
		UserAgent:   opts.userAgent,
	}, logger)

	printer := report.NewPrinter(cmd.OutOrStdout(), len(list.URLs))
	results, err := runner.Run(cmd.Context(), checker.Request{
		URLs:       list.URLs,
		Cookies:    list.Cookies,
		OnProgress: printer.Progress,
	})
	if err != nil {
		return err
	}

	if opts.compare != "" {
		printer.Changes(checker.Compare(results, previous))
	}

	if opts.output != "" {
		if err := report.WriteFile(opts.output, results); err != nil {
			return err
		}
	}
	return nil
}

// readInput parses the list named by args, or stdin when no file is given.
func readInput(cmd *cobra.Command, args []string) (*urllist.List, error) {
	if len(args) == 1 {
		return urllist.ReadFile(args[0])
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return nil, errNoInput
	}
	return urllist.Parse(in)
}
