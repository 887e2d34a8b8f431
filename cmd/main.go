package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lykit/lydiff/backends"
	"github.com/lykit/lydiff/compare"
	"github.com/lykit/lydiff/config"
	"github.com/lykit/lydiff/golden"
	liberrors "github.com/lykit/lydiff/internal/errors"
	"github.com/lykit/lydiff/internal/types"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	root := newRootCommand()
	root.SilenceUsage = true
	root.SilenceErrors = true
	if err := root.Execute(); err != nil {
		var de *liberrors.DiffError
		if errors.As(err, &de) {
			if de.Kind == liberrors.KindGeometry {
				// The expected "test failed" signal: message on stdout,
				// exit code 1 for scripts branching on it.
				fmt.Fprintln(os.Stdout, de.UserMessage())
				os.Exit(1)
			}
			fmt.Fprintln(os.Stderr, de.UserMessage())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}

func newRootCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "lydiff",
		Short: "Regression diff for layout files",
		Long: `lydiff checks whether two layout files hold equivalent geometry per layer
and per top cell, within an erosion tolerance, using the fastest geometry
engine available at runtime.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logrus.SetOutput(os.Stderr)
			if debug || os.Getenv("LYDIFF_DEBUG") != "" {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newCompareCommand())
	cmd.AddCommand(newBackendsCommand())
	cmd.AddCommand(newStoreCommand())

	return cmd
}

func newCompareCommand() *cobra.Command {
	var (
		tolerance float64
		verbose   bool
		backend   string
	)

	cmd := &cobra.Command{
		Use:   "compare FILE1 FILE2",
		Short: "Compare two layout files",
		Long: `Compare two layout files. Exit code 0 means no difference, 1 means the
layouts differ beyond the tolerance, anything else is a non-comparison
failure (unreadable file, incompatible layouts, missing external tool).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("tol") && cfg.Tolerance != nil {
				tolerance = *cfg.Tolerance
			}
			if !cmd.Flags().Changed("verbose") && cfg.Verbose != nil {
				verbose = *cfg.Verbose
			}
			if backend == "" {
				backend = cfg.Backend
			}

			engine, err := resolveBackend(backend, cfg.KLayoutPath)
			if err != nil {
				return err
			}
			comparator, err := compare.New(engine, types.CompareOptions{
				Tolerance: tolerance,
				Verbose:   verbose,
				Output:    os.Stdout,
			})
			if err != nil {
				return err
			}
			_, err = comparator.Compare(args[0], args[1])
			return err
		},
	}

	cmd.Flags().Float64Var(&tolerance, "tol", types.DefaultTolerance, "Tolerance in database units")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print per-cell, per-layer status lines")
	cmd.Flags().StringVar(&backend, "backend", "", "Force an engine (native, klayout, boolean)")

	return cmd
}

// resolveBackend picks the engine: a forced kind when requested, otherwise
// the availability probe and fixed priority order.
func resolveBackend(kind, klayoutBin string) (backends.Backend, error) {
	configureKLayout(klayoutBin)
	if kind != "" {
		return backends.Get(types.EngineKind(kind))
	}
	return backends.Select(backends.Detect(klayoutBin))
}

// configureKLayout pushes a configured binary path into the registered
// klayout engine before selection.
func configureKLayout(bin string) {
	if bin == "" {
		return
	}
	if b, err := backends.Get(types.EngineKLayout); err == nil {
		if kb, ok := b.(*backends.KLayoutBackend); ok {
			kb.Binary = bin
		}
	}
}

func newBackendsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List geometry engines and their availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			avail := backends.Detect(cfg.KLayoutPath)
			for _, kind := range backends.List() {
				b, err := backends.Get(kind)
				if err != nil {
					continue
				}
				marker := " "
				if avail[kind] {
					marker = "*"
				}
				fmt.Printf("%s %-8s %s\n", marker, kind, b.Name())
			}
			fmt.Println("\n* = available on this machine; first available wins")
			return nil
		},
	}
}

func newStoreCommand() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "store NAME FILE",
		Short: "Bless a layout file as the golden reference for NAME",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if root == "" {
				root = cfg.TestRoot
			}
			if root == "" {
				root = "testlayouts"
			}
			name, file := args[0], args[1]
			if _, err := os.Stat(file); err != nil {
				return fmt.Errorf("candidate layout %s: %v", file, err)
			}
			store := golden.NewStore(root)
			ext := golden.Ext(file)
			if err := store.StoreReference(name, ext, file); err != nil {
				return fmt.Errorf("storing golden for %s: %v", name, err)
			}
			fmt.Printf("Stored golden %s\n", store.RefPath(name, ext))
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Golden store root directory (default from config, else ./testlayouts)")

	return cmd
}
