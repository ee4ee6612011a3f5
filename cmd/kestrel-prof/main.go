// kestrel-prof renders and archives call-profile snapshots written by
// Evaluator.WriteProfileSnapshot.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/kestrel/manifest"
	"github.com/chazu/kestrel/profilestore"
	"github.com/chazu/kestrel/vm/profile"
)

var logger = commonlog.GetLogger("kestrel.prof")

// options are the resolved command-line settings.
type options struct {
	format string
	store  string
	list   bool
	load   string
}

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	format := flag.String("format", "", "Output format: summary or flame (default from kestrel.toml, else summary)")
	store := flag.String("store", "", "SQLite archive to save snapshots into (default from kestrel.toml)")
	list := flag.Bool("list", false, "List archived runs")
	load := flag.String("load", "", "Render an archived run by ID")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: kestrel-prof [options] [snapshots...]\n\n")
		fmt.Fprintf(os.Stderr, "Renders CBOR profile snapshots and optionally archives them.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  kestrel-prof run.cbor                       # Summary CSV\n")
		fmt.Fprintf(os.Stderr, "  kestrel-prof -format flame run.cbor         # Folded stacks\n")
		fmt.Fprintf(os.Stderr, "  kestrel-prof -store prof.db a.cbor b.cbor   # Archive two runs\n")
		fmt.Fprintf(os.Stderr, "  kestrel-prof -store prof.db -list           # List archived runs\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	opts := options{format: *format, store: *store, list: *list, load: *load}
	if err := applyManifest(&opts, "."); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(context.Background(), opts, flag.Args(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyManifest fills settings left empty on the command line from the
// nearest kestrel.toml.
func applyManifest(opts *options, dir string) error {
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return err
	}
	if m == nil {
		return nil
	}
	logger.Debugf("using %s in %s", manifest.FileName, m.Dir)
	if opts.store == "" {
		opts.store = m.StorePath()
	}
	if opts.format == "" && m.Profile.Mode == "heap-flame" {
		opts.format = "flame"
	}
	return nil
}

func run(ctx context.Context, opts options, paths []string, w io.Writer) error {
	switch opts.format {
	case "":
		opts.format = "summary"
	case "summary", "flame":
	default:
		return fmt.Errorf("unknown format %q (want summary or flame)", opts.format)
	}

	var st *profilestore.Store
	if opts.store != "" {
		var err error
		st, err = profilestore.Open(opts.store)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	if opts.list || opts.load != "" {
		if st == nil {
			return fmt.Errorf("-list and -load need a store")
		}
		if opts.list {
			return listRuns(ctx, st, w)
		}
		r, err := st.Load(ctx, opts.load)
		if err != nil {
			return fmt.Errorf("%s: %w", opts.load, err)
		}
		return render(w, r, opts.format)
	}

	if len(paths) == 0 {
		return fmt.Errorf("no snapshots given")
	}
	reports, err := readSnapshots(ctx, paths)
	if err != nil {
		return err
	}
	for i, r := range reports {
		if len(reports) > 1 {
			fmt.Fprintf(w, "# %s (run %s)\n", paths[i], r.RunID)
		}
		if err := render(w, r, opts.format); err != nil {
			return err
		}
		if st != nil {
			if err := st.Save(ctx, r); err != nil {
				return err
			}
			logger.Infof("archived run %s", r.RunID)
		}
	}
	return nil
}

// readSnapshots decodes every path concurrently, keeping argument order.
func readSnapshots(ctx context.Context, paths []string) ([]*profile.Report, error) {
	reports := make([]*profile.Report, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			r, err := profile.UnmarshalReport(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func render(w io.Writer, r *profile.Report, format string) error {
	if format == "flame" {
		return profile.WriteFlame(w, r.Flame)
	}
	return profile.WriteSummary(w, r.Rows)
}

func listRuns(ctx context.Context, st *profilestore.Store, w io.Writer) error {
	runs, err := st.Runs(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tMODE\tCREATED\tTIME\tALLOCATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			r.ID, r.Mode, r.CreatedAt.UTC().Format(time.RFC3339), r.Time, r.Allocated)
	}
	return tw.Flush()
}
