package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fzft/go-chained-map/db"
	"github.com/fzft/go-chained-map/log"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// cancelCheckEvery is how many inserts run between context checks.
const cancelCheckEvery = 4096

const (
	keysSequential = "seq"
	keysUUID       = "uuid"
)

type benchOptions struct {
	keys     int
	tables   int
	parallel int
	kind     string
	trace    bool
}

// tableReport is the outcome of one benchmarked table.
type tableReport struct {
	ID           int
	Keys         int
	Buckets      int
	Resizes      int
	LongestChain int
	Insert       time.Duration
	Remove       time.Duration
}

func newBenchCommand(config *Config) *cobra.Command {
	opts := benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Fill independent tables and verify growth and count invariants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := runBench(cmd.Context(), config, opts)
			if err != nil {
				return err
			}
			printBench(cmd.OutOrStdout(), opts, reports)
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.keys, "keys", "n", 100000, "Keys inserted into each table")
	cmd.Flags().IntVarP(&opts.tables, "tables", "t", 4, "Number of independent tables")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", 2, "Tables filled concurrently, one goroutine per table")
	cmd.Flags().StringVar(&opts.kind, "kind", keysSequential, "Key generator: seq or uuid")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Log every resize")
	return cmd
}

func runBench(ctx context.Context, config *Config, opts benchOptions) ([]tableReport, error) {
	if opts.keys <= 0 || opts.tables <= 0 || opts.parallel <= 0 {
		return nil, errors.New("keys, tables and parallel must be positive")
	}
	if opts.kind != keysSequential && opts.kind != keysUUID {
		return nil, errors.Errorf("unknown key kind %q", opts.kind)
	}

	reports := make([]tableReport, opts.tables)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.parallel)
	for id := 0; id < opts.tables; id++ {
		g.Go(func() error {
			r, err := benchTable(ctx, config, opts, id)
			if err != nil {
				return errors.Wrapf(err, "table %d", id)
			}
			reports[id] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func benchKeys(kind string, n int) []string {
	keys := make([]string, n)
	for i := range keys {
		if kind == keysUUID {
			keys[i] = uuid.NewString()
		} else {
			keys[i] = fmt.Sprintf("key:%d", i)
		}
	}
	return keys
}

// benchTable owns its table for its whole run; tables are never shared
// between goroutines.
func benchTable(ctx context.Context, config *Config, opts benchOptions, id int) (tableReport, error) {
	logger := log.Logger.With(zap.Int("table", id))
	table := config.NewTable()
	table.SetLogger(logger)

	report := tableReport{ID: id, Keys: opts.keys}
	table.OnResize(func(ev db.ResizeEvent) {
		report.Resizes++
		if opts.trace {
			logger.Info("resize", zap.Int("from", ev.From), zap.Int("to", ev.To), zap.Int("entries", ev.Entries))
		}
	})

	keys := benchKeys(opts.kind, opts.keys)

	start := time.Now()
	for i, k := range keys {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return report, err
			}
		}
		before := table.Len()
		if _, replaced := table.Insert(k, k); replaced {
			return report, errors.Errorf("key %q inserted twice", k)
		}
		if limit := 3 * table.Buckets() / 4; before > limit {
			return report, errors.Errorf("insert #%d placed %d entries into %d buckets", i, before, table.Buckets())
		}
	}
	report.Insert = time.Since(start)
	if table.Len() != len(keys) {
		return report, errors.Errorf("len %d after %d inserts", table.Len(), len(keys))
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	stats := table.Stats()
	report.Buckets = stats.Buckets
	report.LongestChain = stats.LongestChain

	start = time.Now()
	for i := 0; i < len(keys); i += 2 {
		if v, ok := table.Remove(keys[i]); !ok || v != keys[i] {
			return report, errors.Errorf("remove %q: got %q, %v", keys[i], v, ok)
		}
	}
	report.Remove = time.Since(start)

	want := len(keys) / 2
	if table.Len() != want {
		return report, errors.Errorf("len %d after removals, want %d", table.Len(), want)
	}
	for i, k := range keys {
		if table.ContainsKey(k) != (i%2 == 1) {
			return report, errors.Errorf("key %q membership wrong after removals", k)
		}
	}

	logger.Info("table verified",
		zap.Int("keys", report.Keys),
		zap.Int("buckets", report.Buckets),
		zap.Int("resizes", report.Resizes),
		zap.Int("longest_chain", report.LongestChain),
		zap.Duration("insert", report.Insert),
		zap.Duration("remove", report.Remove),
	)
	return report, nil
}

func printBench(out io.Writer, opts benchOptions, reports []tableReport) {
	var insert, remove time.Duration
	for _, r := range reports {
		fmt.Fprintf(out, "table %d: keys=%d buckets=%d resizes=%d longest_chain=%d insert=%s remove=%s\n",
			r.ID, r.Keys, r.Buckets, r.Resizes, r.LongestChain, r.Insert, r.Remove)
		insert += r.Insert
		remove += r.Remove
	}
	inserts := opts.keys * len(reports)
	removes := (opts.keys + 1) / 2 * len(reports)
	if inserts > 0 {
		fmt.Fprintf(out, "%d tables, %d %s keys each: %s/insert %s/remove\n",
			len(reports), opts.keys, opts.kind,
			insert/time.Duration(inserts), remove/time.Duration(removes))
	}
}
