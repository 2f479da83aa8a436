// Command extract runs the statement pipeline over local files and prints
// one JSON response per file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/diagnostics"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/service"
	"github.com/FACorreiaa/statement-extractor/pkg/money"
)

type options struct {
	password    string
	maxPages    int
	profiles    string
	diagnostics string
	concurrency int
	currency    string
	summary     bool
	verbose     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 when every file succeeded, 1 when
// any did not, 2 on usage errors.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.password, "password", "", "Password for encrypted PDFs (applied to every file)")
	fs.IntVar(&opts.maxPages, "max-pages", 200, "Maximum pages loaded per document (0 = unlimited)")
	fs.StringVar(&opts.profiles, "profiles", "", "JSON file with extra bank profiles")
	fs.StringVar(&opts.diagnostics, "diagnostics", "", "Append low-confidence rows to this CSV log")
	fs.IntVar(&opts.concurrency, "concurrency", 4, "Files processed in parallel")
	fs.StringVar(&opts.currency, "currency", money.USD, "Currency for totals when the bank is unknown")
	fs.BoolVar(&opts.summary, "summary", true, "Print debit and credit totals per file to stderr")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage:\n  extract [flags] <statement> [statement ...]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	if opts.concurrency < 1 {
		fmt.Fprintln(stderr, "concurrency must be at least 1")
		return 2
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	svc, closeFn, err := newService(opts, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer closeFn()

	paths := fs.Args()
	responses := make([]*service.Response, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			responses[i] = svc.Process(gctx, service.Request{Path: path, Password: opts.password})
			return nil
		})
	}
	_ = g.Wait()

	enc := json.NewEncoder(stdout)
	exit := 0
	for i, resp := range responses {
		if err := enc.Encode(resp); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		if resp.Status != service.StatusSuccess {
			exit = 1
		}
		if opts.summary {
			printSummary(stderr, paths[i], resp, opts.currency)
		}
	}
	return exit
}

func newService(opts options, logger *slog.Logger) (*service.Service, func(), error) {
	svc := service.New(logger).WithMaxPages(opts.maxPages)
	closeFn := func() {}

	if opts.profiles != "" {
		f, err := os.Open(opts.profiles)
		if err != nil {
			return nil, nil, fmt.Errorf("open profiles: %w", err)
		}
		profiles, err := artifact.LoadProfiles(f)
		f.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("load profiles: %w", err)
		}
		svc = svc.WithProfiles(profiles)
	}

	if opts.diagnostics != "" {
		diag, err := diagnostics.Open(opts.diagnostics)
		if err != nil {
			return nil, nil, fmt.Errorf("open diagnostics: %w", err)
		}
		svc = svc.WithDiagnostics(diag, 0)
		closeFn = func() { _ = diag.Close() }
	}
	return svc, closeFn, nil
}

func printSummary(w io.Writer, path string, resp *service.Response, fallback string) {
	if resp.Status != service.StatusSuccess {
		fmt.Fprintf(w, "%s: %s %s\n", path, resp.Status, resp.Error)
		return
	}
	totals := money.NewTotals(money.CurrencyForBank(resp.Bank, fallback))
	for _, tx := range resp.Transactions {
		if err := totals.Add(tx.Debit, tx.Credit); err != nil {
			fmt.Fprintf(w, "%s: totals unavailable: %v\n", path, err)
			return
		}
	}
	fmt.Fprintf(w, "%s: %s %d transactions, debits %s, credits %s, net %s\n",
		path, resp.Bank, totals.Count, totals.Debits.Display(), totals.Credits.Display(), totals.Net().Display())
}
