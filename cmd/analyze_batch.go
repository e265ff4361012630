package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/tallyloom/internal/analysis"
	"github.com/KaramelBytes/tallyloom/internal/pipeline"
	"github.com/KaramelBytes/tallyloom/internal/session"
	"github.com/KaramelBytes/tallyloom/internal/utils"
)

var (
	abInput      parseFlags
	abOutputDir  string
	abSampleRows int
	abJobs       int
	abNoSave     bool
	abQuiet      bool
)

type batchItem struct {
	path   string
	name   string
	result *pipeline.Result
	report *analysis.Report
}

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple files concurrently and store each as a session",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		seen := map[string]struct{}{}
		for _, arg := range args {
			matches, _ := filepath.Glob(arg)
			if len(matches) == 0 {
				// treat as literal path if exists
				if _, err := os.Stat(arg); err == nil {
					matches = []string{arg}
				}
			}
			for _, m := range matches {
				if _, ok := seen[m]; ok {
					continue
				}
				seen[m] = struct{}{}
				files = append(files, m)
			}
		}
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		sort.Strings(files)

		opts, err := abInput.options()
		if err != nil {
			return err
		}
		engine, err := abInput.engine()
		if err != nil {
			return err
		}

		jobs := abJobs
		if jobs <= 0 {
			jobs = runtime.NumCPU()
		}
		items := make([]batchItem, len(files))
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(jobs)
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				text, err := abInput.readInput(cmd, path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				res, err := engine.ParseAndClassify(text, opts)
				if err != nil {
					return fmt.Errorf("parse %s: %w", path, err)
				}
				name := sourceName(path)
				items[i] = batchItem{
					path:   path,
					name:   name,
					result: res,
					report: engine.Report(name, res, abSampleRows, true),
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		var st session.Store
		if !abNoSave {
			st, err = openStore()
			if err != nil {
				return err
			}
			defer st.Close()
		}
		if abOutputDir != "" {
			if err := utils.EnsureDir(abOutputDir); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		total := len(items)
		for i, it := range items {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] %s: %d financeiro, %d organizacional (%s)\n",
					i+1, total, filepath.Base(it.path), len(it.result.Financial), len(it.result.Organizational), it.result.Format)
			}
			if st != nil {
				s := session.New(it.name, it.result)
				if err := st.Save(cmd.Context(), s); err != nil {
					return fmt.Errorf("save session for %s: %w", it.path, err)
				}
				if !abQuiet {
					fmt.Fprintf(out, "✓ Saved session %s\n", s.ID)
				}
			}
			if abOutputDir != "" {
				outFile := uniquePath(filepath.Join(abOutputDir, it.name), ".summary.md")
				if err := utils.SafeWriteFile(outFile, []byte(it.report.Markdown())); err != nil {
					return fmt.Errorf("write summary: %w", err)
				}
				if !abQuiet {
					fmt.Fprintf(out, "✓ Wrote %s\n", outFile)
				}
			} else if !abQuiet {
				fmt.Fprintln(out, it.report.Markdown())
			}
		}
		return nil
	},
}

// uniquePath returns base+ext, or base__N+ext when that file already exists.
func uniquePath(base, ext string) string {
	p := base + ext
	if _, err := os.Stat(p); err != nil {
		return p
	}
	for idx := 2; ; idx++ {
		cand := fmt.Sprintf("%s__%d%s", base, idx, ext)
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand
		}
	}
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abInput.bind(analyzeBatchCmd.Flags())
	analyzeBatchCmd.Flags().StringVar(&abOutputDir, "output-dir", "", "write one <name>.summary.md per input into this directory")
	analyzeBatchCmd.Flags().IntVar(&abSampleRows, "sample-rows", analysis.DefaultOptions().SampleRows, "number of sample rows to include (0 disables)")
	analyzeBatchCmd.Flags().IntVarP(&abJobs, "jobs", "j", 0, "files processed in parallel (default: number of CPUs)")
	analyzeBatchCmd.Flags().BoolVar(&abNoSave, "no-save", false, "do not store results as sessions")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
