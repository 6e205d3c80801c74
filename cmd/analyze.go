package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/okian/capflow/internal/adapters/tablefile"
	app "github.com/okian/capflow/internal/app"
	"github.com/okian/capflow/internal/config"
	"github.com/okian/capflow/internal/domain/centrality"
	"github.com/okian/capflow/internal/domain/model"
	"github.com/okian/capflow/internal/domain/normalize"
	"github.com/okian/capflow/pkg/logger"
)

var errBadFlag = errors.New("invalid flag")

// viewFlags are the view controls shared by every offline command.
type viewFlags struct {
	types     []string
	lo, hi    float64
	cursor    float64
	pattern   string
	minWeight int
	fromCSV   bool
	fromJSON  bool
}

func (f *viewFlags) register(fs *pflag.FlagSet) {
	fs.StringSliceVar(&f.types, "types", nil, "event types to include (empty value selects none)")
	fs.Float64Var(&f.lo, "lo", 0, "window start, seconds")
	fs.Float64Var(&f.hi, "hi", 0, "window end, seconds")
	fs.Float64Var(&f.cursor, "cursor", 0, "playback cursor, seconds")
	fs.StringVar(&f.pattern, "pattern", "", "capability pattern, case-insensitive regex")
	fs.IntVar(&f.minWeight, "min-weight", 0, "minimum edge weight")
	fs.BoolVar(&f.fromCSV, "from-csv", false, "read FILE as an exported events CSV")
	fs.BoolVar(&f.fromJSON, "from-json", false, "read FILE as an exported events JSON table")
}

// tableFormat names the exported table format FILE is in, or "" for a raw log.
func (f *viewFlags) tableFormat() (tablefile.Format, error) {
	switch {
	case f.fromCSV && f.fromJSON:
		return "", fmt.Errorf("%w: --from-csv and --from-json are mutually exclusive", errBadFlag)
	case f.fromCSV:
		return tablefile.FormatCSV, nil
	case f.fromJSON:
		return tablefile.FormatJSON, nil
	}
	return "", nil
}

// apply layers the flags the user set over base.
func (f *viewFlags) apply(fs *pflag.FlagSet, base model.View) (model.View, error) {
	v := base
	if fs.Changed("types") {
		v.Types = append([]string{}, f.types...)
	}
	if fs.Changed("lo") {
		v.Window.Lo = f.lo
	}
	if fs.Changed("hi") {
		v.Window.Hi = f.hi
	}
	if fs.Changed("cursor") {
		v.Cursor = f.cursor
	}
	if fs.Changed("pattern") {
		v.Pattern = f.pattern
	}
	if fs.Changed("min-weight") {
		if f.minWeight < 1 {
			return model.View{}, fmt.Errorf("%w: --min-weight must be at least 1", errBadFlag)
		}
		v.MinWeight = f.minWeight
	}
	if v.Window.Lo > v.Window.Hi {
		return model.View{}, fmt.Errorf("%w: --lo %g exceeds --hi %g", errBadFlag, v.Window.Lo, v.Window.Hi)
	}
	return v, nil
}

// offline bundles what the file based commands need for one pass.
type offline struct {
	table    model.Table
	view     model.View
	pipeline *app.Pipeline
}

func loadOffline(cmd *cobra.Command, path string, f *viewFlags) (offline, error) {
	ctx := cmd.Context()
	cfg := configFrom(ctx)

	format, err := f.tableFormat()
	if err != nil {
		return offline{}, err
	}
	table, err := loadTable(ctx, cfg, path, format)
	if err != nil {
		return offline{}, err
	}
	v, err := f.apply(cmd.Flags(), app.DefaultView(table, cfg.DefaultMinWeight))
	if err != nil {
		return offline{}, err
	}
	p := app.NewPipeline(
		app.WithEngine(centrality.New(
			centrality.WithMaxIterations(cfg.EigenMaxIterations),
			centrality.WithTolerance(cfg.EigenTolerance),
		)),
		app.WithPipelineLogger(logger.Get()),
	)
	return offline{table: table, view: v, pipeline: p}, nil
}

// loadTable reads a raw JSON log, or an exported table when format is set.
func loadTable(ctx context.Context, cfg *config.Config, path string, format tablefile.Format) (model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if format != "" {
		return tablefile.Read(f, format)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	n := normalize.New(
		normalize.WithTopic(cfg.Topic),
		normalize.WithTypeMaxLen(cfg.TypeMaxLen),
		normalize.WithLogger(logger.Get()),
	)
	return n.NormalizeJSON(ctx, data)
}

func newAnalyzeCmd() *cobra.Command {
	var (
		flags  viewFlags
		format string
	)
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Run one pass over a log and print the snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := loadOffline(cmd, args[0], &flags)
			if err != nil {
				return err
			}
			snap, err := o.pipeline.Compute(cmd.Context(), o.table, o.view)
			if err != nil {
				return err
			}
			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			case "text":
				return printSnapshot(cmd.OutOrStdout(), snap)
			default:
				return fmt.Errorf("%w: --format %q", errBadFlag, format)
			}
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}

func printSnapshot(w io.Writer, s app.Snapshot) error {
	fmt.Fprintf(w, "events %d/%d  nodes %d  edges %d  density %.4f  cursor %g\n",
		s.Summary.Events, s.Summary.TotalEvents, s.Summary.Nodes, s.Summary.Edges, s.Density, s.Summary.Cursor)
	fmt.Fprintf(w, "eigenvector: %s after %d iterations\n\n", s.Centrality.EigenvectorStatus, s.Centrality.EigenIterations)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tDEGREE\tBETWEENNESS\tEIGENVECTOR")
	for _, n := range s.Nodes {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\n",
			n, s.Centrality.Degree[n], s.Centrality.Betweenness[n], s.Centrality.Eigenvector[n])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tTARGET\tWEIGHT")
	edges := append(s.Edges[:0:0], s.Edges...)
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Weight > edges[j].Weight })
	for _, e := range edges {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", e.Source, e.Target, e.Weight)
	}
	return tw.Flush()
}

func newPathCmd() *cobra.Command {
	var flags viewFlags
	cmd := &cobra.Command{
		Use:   "path FILE SRC DST",
		Short: "Print the fewest-hop path between two capabilities",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := loadOffline(cmd, args[0], &flags)
			if err != nil {
				return err
			}
			g, _, err := o.pipeline.Graph(cmd.Context(), o.table, o.view)
			if err != nil {
				return err
			}
			path, err := centrality.ShortestPath(g, args[1], args[2])
			switch {
			case errors.Is(err, centrality.ErrNoPath):
				fmt.Fprintf(cmd.OutOrStdout(), "no path from %s to %s\n", args[1], args[2])
				return nil
			case err != nil:
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d hops)\n", strings.Join(path, " -> "), len(path)-1)
			return nil
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func newPlayCmd() *cobra.Command {
	var (
		flags    viewFlags
		step     float64
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "play FILE",
		Short: "Replay a log over time, one summary line per tick",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := loadOffline(cmd, args[0], &flags)
			if err != nil {
				return err
			}
			cfg := configFrom(cmd.Context())
			if !cmd.Flags().Changed("step") {
				step = cfg.PlaybackStep
			}
			if !cmd.Flags().Changed("interval") {
				interval = time.Duration(cfg.PlaybackIntervalMS) * time.Millisecond
			}

			out := cmd.OutOrStdout()
			pb := app.NewPlayback(o.view.Window, step)
			_, err = app.RunPlayback(cmd.Context(), interval, pb, func(ctx context.Context, p app.Playback) error {
				snap, err := o.pipeline.Compute(ctx, o.table, p.View(o.view))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "t=%-8.2f events=%-6d nodes=%-4d edges=%-4d density=%.4f\n",
					p.Cursor, snap.Summary.Events, snap.Summary.Nodes, snap.Summary.Edges, snap.Density)
				return nil
			})
			return err
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().Float64Var(&step, "step", 0, "cursor advance per tick, seconds")
	cmd.Flags().DurationVar(&interval, "interval", 0, "delay between ticks")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		flags   viewFlags
		csvOut  string
		jsonOut string
		out     string
	)
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write the filtered event table as CSV or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, format, err := exportTarget(csvOut, jsonOut, out)
			if err != nil {
				return err
			}
			o, err := loadOffline(cmd, args[0], &flags)
			if err != nil {
				return err
			}
			_, sel, err := o.pipeline.Graph(cmd.Context(), o.table, o.view)
			if err != nil {
				return err
			}

			if err := writeTable(path, format, sel.Events); err != nil {
				return err
			}
			logger.Get().Info(cmd.Context(), "table exported",
				logger.String("path", path), logger.Int("events", len(sel.Events)))
			return nil
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&csvOut, "csv", "", "write CSV to this path")
	cmd.Flags().StringVar(&jsonOut, "json", "", "write JSON to this path")
	cmd.Flags().StringVar(&out, "out", "", "write to this path, format from its .csv or .json extension")
	return cmd
}

// exportTarget resolves the single output path and its format.
func exportTarget(csvOut, jsonOut, out string) (string, tablefile.Format, error) {
	var path string
	var format tablefile.Format
	named := 0
	if csvOut != "" {
		path, format = csvOut, tablefile.FormatCSV
		named++
	}
	if jsonOut != "" {
		path, format = jsonOut, tablefile.FormatJSON
		named++
	}
	if out != "" {
		f, err := tablefile.FormatFromPath(out)
		if err != nil {
			return "", "", fmt.Errorf("%w: --out: %w", errBadFlag, err)
		}
		path, format = out, f
		named++
	}
	if named != 1 {
		return "", "", fmt.Errorf("%w: exactly one of --csv, --json or --out is required", errBadFlag)
	}
	return path, format, nil
}

func writeTable(path string, format tablefile.Format, t model.Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return tablefile.Write(f, format, t)
}
