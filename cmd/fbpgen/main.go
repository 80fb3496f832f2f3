package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ravi-parthasarathy/fbpgen/pkg/catalog"
	"github.com/ravi-parthasarathy/fbpgen/pkg/compiler"
	"github.com/ravi-parthasarathy/fbpgen/pkg/conffile"
	"github.com/ravi-parthasarathy/fbpgen/pkg/emit"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		var d *compiler.Diagnostic
		if errors.As(err, &d) {
			fmt.Fprintln(os.Stderr, d.Error())
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel, logFormat string

	root := &cobra.Command{
		Use:   "fbpgen",
		Short: "fbpgen compiles FBP flow descriptions into Go",
		Long: `fbpgen reads a flow written in the FBP language, resolves every node
against node type catalogs, validates ports and options, and writes a Go
file that builds the flow as a static node type.

Declared .fbp files are compiled recursively into nested node types.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return initLogger(logLevel, logFormat)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(compileCmd())
	root.AddCommand(lintCmd())
	root.AddCommand(graphCmd())
	root.AddCommand(catalogCmd())
	return root
}

// ─── logging ──────────────────────────────────────────────────────────────────

// initLogger installs the default slog logger on stderr.
func initLogger(level, format string) error {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q: use debug, info, warn or error", level)
	}

	var h slog.Handler
	switch strings.ToLower(format) {
	case "text":
		h = tint.NewHandler(os.Stderr, &tint.Options{
			Level:       lvl,
			TimeFormat:  time.DateTime,
			NoColor:     color.NoColor,
			ReplaceAttr: colorLevel,
		})
	case "json":
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	default:
		return fmt.Errorf("unknown log format %q: use text or json", format)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

func colorLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) > 0 {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	switch level {
	case slog.LevelInfo:
		a.Value = slog.StringValue(color.GreenString("INF"))
	case slog.LevelWarn:
		a.Value = slog.StringValue(color.YellowString("WRN"))
	case slog.LevelError:
		a.Value = slog.StringValue(color.RedString("ERR"))
	}
	return a
}

// ─── compile ──────────────────────────────────────────────────────────────────

// compileFlags are the inputs shared by compile and lint.
type compileFlags struct {
	conffile string
	catalogs []string
	includes []string
}

func (f *compileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.conffile, "conffile", "c", "", "conffile resolving symbolic node type ids")
	cmd.Flags().StringArrayVarP(&f.catalogs, "catalog", "j", nil, "node type catalog file or directory (repeatable)")
	cmd.Flags().StringArrayVarP(&f.includes, "include", "I", nil, "directory searched for declared .fbp files (repeatable)")
	_ = cmd.MarkFlagRequired("catalog")
}

func (f *compileFlags) config() (compiler.Config, error) {
	cat := catalog.New()
	if err := cat.LoadPaths(f.catalogs); err != nil {
		return compiler.Config{}, fmt.Errorf("load catalog: %w", err)
	}
	slog.Debug("catalog loaded", "types", cat.Len(), "rejected", len(cat.Rejected()))
	cfg := compiler.Config{Common: cat, SearchPaths: f.includes}
	if f.conffile != "" {
		cf, err := conffile.LoadFile(f.conffile)
		if err != nil {
			return compiler.Config{}, err
		}
		cfg.Resolver = cf
	}
	return cfg, nil
}

func compileCmd() *cobra.Command {
	var (
		flags   compileFlags
		symbol  string
		pkgName string
	)

	cmd := &cobra.Command{
		Use:   "compile <input.fbp> <output.go>",
		Short: "Compile a flow into a Go source file",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			input, output := args[0], args[1]
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			ctx := compiler.NewContext(cfg)
			if _, err := ctx.CompileFile(input); err != nil {
				return err
			}

			opts := emit.Options{Symbol: symbol}
			if symbol != "" {
				opts.Package = pkgName
				if opts.Package == "" {
					opts.Package = emit.PackageName(output)
				}
			}
			if err := emit.Write(ctx, output, opts); err != nil {
				return err
			}
			slog.Info("flow compiled", "input", input, "output", output, "units", len(ctx.Units()))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "emit an accessor func with this name instead of a main program")
	cmd.Flags().StringVar(&pkgName, "package", "", "package name in accessor mode (default: output directory name)")
	return cmd
}

// ─── lint ─────────────────────────────────────────────────────────────────────

type lintResult struct {
	input string
	units int
	nodes int
	err   error
}

func lintCmd() *cobra.Command {
	var flags compileFlags

	cmd := &cobra.Command{
		Use:   "lint <input.fbp>...",
		Short: "Resolve and validate flows without writing any output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			results := lintFlows(cfg, args)

			failed := 0
			for _, r := range results {
				if r.err != nil {
					failed++
					fmt.Fprintln(cmd.ErrOrStderr(), r.err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "OK: %s (%d units, %d nodes)\n", r.input, r.units, r.nodes)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d flows failed", failed, len(results))
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// lintFlows compiles every input concurrently. Each input gets its own
// compiler context; the catalog and resolver are only read.
func lintFlows(cfg compiler.Config, inputs []string) []lintResult {
	results := make([]lintResult, len(inputs))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			r := lintResult{input: input}
			ctx := compiler.NewContext(cfg)
			if _, err := ctx.CompileFile(input); err != nil {
				r.err = err
			}
			for _, u := range ctx.Units() {
				r.units++
				r.nodes += len(u.Graph.Nodes)
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ─── catalog ──────────────────────────────────────────────────────────────────

func catalogCmd() *cobra.Command {
	var paths []string

	cmd := &cobra.Command{
		Use:   "catalog [type]",
		Short: "Print the node types of one or more catalogs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := catalog.New()
			if err := cat.LoadPaths(paths); err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				cat.Print(out)
				return nil
			}
			t, ok := cat.Find(args[0])
			if !ok {
				return fmt.Errorf("type %q not found in catalog", args[0])
			}
			catalog.PrintType(out, t)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&paths, "catalog", "j", nil, "node type catalog file or directory (repeatable)")
	_ = cmd.MarkFlagRequired("catalog")
	return cmd
}
