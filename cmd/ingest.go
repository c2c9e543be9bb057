package main

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prodsheet/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.xlsx> [more files...]",
	Short: "Parse and store production sheets from local files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		parser, err := buildParser()
		if err != nil {
			return err
		}

		concurrency := cfg.Ingest.MaxConcurrentFiles
		if concurrency < 1 {
			concurrency = 1
		}

		type fileResult struct {
			file      string
			extracted int
			report    *store.UpsertReport
		}

		var mu sync.Mutex
		var results []fileResult

		// Files run concurrently; each one is its own sequential pipeline.
		// The upsert keyed on (order_number, color) keeps overlapping files
		// commutative.
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for _, path := range args {
			g.Go(func() error {
				filename := filepath.Base(path)
				items, err := parser.Parse(gctx, path, filename)
				if err != nil {
					return err
				}
				report, err := st.Upsert(gctx, items)
				if err != nil {
					return err
				}
				mu.Lock()
				results = append(results, fileResult{file: filename, extracted: len(items), report: report})
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, r := range results {
			fmt.Printf("%s: %d extracted, %d stored, %d skipped, %d failed\n",
				r.file, r.extracted, r.report.Stored, r.report.Skipped, r.report.Failed)
			for _, e := range r.report.Errors {
				zap.L().Warn("ingest: record failed",
					zap.String("file", r.file),
					zap.String("order_number", e.OrderNumber),
					zap.String("color", e.Color),
					zap.String("reason", e.Reason),
				)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
