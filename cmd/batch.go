package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-validator/internal/audio"
	"github.com/sells-group/lead-validator/internal/config"
	"github.com/sells-group/lead-validator/internal/model"
	"github.com/sells-group/lead-validator/internal/pipeline"
	"github.com/sells-group/lead-validator/internal/report"
)

var (
	batchReport string
	batchFormat string
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir|archive.zip|manifest.xlsx|manifest.csv>",
	Short: "Validate every recording in a directory, ZIP archive or manifest",
	Long: "Validates recordings one at a time. A failed file is recorded and the batch moves on. " +
		"Exits non-zero when any file failed.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		refs, cleanup, err := collectInputs(args[0])
		if err != nil {
			return err
		}
		defer cleanup()
		if len(refs) == 0 {
			return eris.Errorf("no recordings found in %s", args[0])
		}

		env, err := initPipeline(ctx, config.ModeValidate)
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("batch: starting", zap.String("input", args[0]), zap.Int("files", len(refs)))

		rows := runBatch(ctx, env.Loader, env.Pipeline, refs)

		if batchReport != "" {
			if err := report.WriteXLSX(batchReport, rows); err != nil {
				return err
			}
			zap.L().Info("batch: report written", zap.String("path", batchReport))
		}

		summary := report.Summarize(rows)
		if err := report.Encode(os.Stdout, summary, batchFormat); err != nil {
			return err
		}

		if summary.Failed > 0 {
			return eris.Errorf("%d of %d files failed", summary.Failed, summary.Total)
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchReport, "report", "", "write an XLSX report to this path")
	batchCmd.Flags().StringVar(&batchFormat, "format", report.FormatJSON, "summary output format (json, yaml)")
	rootCmd.AddCommand(batchCmd)
}

// recordingLoader loads one recording by reference.
type recordingLoader interface {
	Load(ctx context.Context, ref string) (model.Audio, error)
}

// recordingRunner validates one loaded recording.
type recordingRunner interface {
	Run(ctx context.Context, rec model.Audio) (*pipeline.Result, error)
}

// runBatch validates refs in order. It stops early only when ctx is
// cancelled; remaining files are reported as failed.
func runBatch(ctx context.Context, loader recordingLoader, runner recordingRunner, refs []string) []report.Row {
	rows := make([]report.Row, 0, len(refs))
	for i, ref := range refs {
		row := report.Row{File: filepath.Base(ref)}

		if err := ctx.Err(); err != nil {
			row.Err = err
			rows = append(rows, row)
			continue
		}

		rec, err := loader.Load(ctx, ref)
		if err != nil {
			row.Err = err
			rows = append(rows, row)
			zap.L().Error("batch: load failed", zap.String("ref", ref), zap.Error(err))
			continue
		}
		row.File = rec.Name

		res, err := runner.Run(ctx, rec)
		if res != nil {
			row.RunID = res.RunID
			row.Result = res.Validation
			row.Cost = res.Cost.Total()
		}
		row.Err = err
		rows = append(rows, row)

		fields := []zap.Field{
			zap.Int("index", i+1),
			zap.Int("total", len(refs)),
			zap.String("file", row.File),
		}
		if err != nil {
			zap.L().Error("batch: file failed", append(fields, zap.Error(err))...)
			continue
		}
		zap.L().Info("batch: file complete", append(fields,
			zap.String("status", string(row.Result.Status)),
			zap.Bool("needs_review", row.Result.NeedsManualReview),
		)...)
	}
	return rows
}

// collectInputs expands a batch argument into recording references. ZIP
// archives are extracted to a temp dir that cleanup removes.
func collectInputs(path string) ([]string, func(), error) {
	noop := func() {}

	if report.IsManifest(path) {
		entries, err := report.ReadManifest(path)
		if err != nil {
			return nil, noop, err
		}
		refs := make([]string, 0, len(entries))
		for _, e := range entries {
			refs = append(refs, resolveManifestRef(path, e.Ref))
		}
		return refs, noop, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, noop, eris.Wrapf(err, "stat %s", path)
	}

	if info.IsDir() {
		refs, err := audio.ListRecordings(path)
		return refs, noop, err
	}

	if strings.EqualFold(filepath.Ext(path), ".zip") {
		dir, err := os.MkdirTemp("", "leadval-batch-*")
		if err != nil {
			return nil, noop, eris.Wrap(err, "create temp dir")
		}
		cleanup := func() { _ = os.RemoveAll(dir) }
		refs, err := audio.ExtractRecordings(path, dir)
		if err != nil {
			cleanup()
			return nil, noop, err
		}
		return refs, cleanup, nil
	}

	return nil, noop, eris.Errorf("unsupported batch input %s: want a directory, .zip, .xlsx or .csv", path)
}

// resolveManifestRef makes relative local paths relative to the manifest.
func resolveManifestRef(manifest, ref string) string {
	if strings.Contains(ref, "://") || filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(filepath.Dir(manifest), ref)
}
