package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-validator/internal/config"
	"github.com/sells-group/lead-validator/internal/report"
)

var validateFormat string

var validateCmd = &cobra.Command{
	Use:   "validate <recording>",
	Short: "Validate a single call recording",
	Long: "Loads one recording (local path, http(s)://, ftp:// or s3:// URL), runs the full validation " +
		"pipeline and prints the verdict.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, config.ModeValidate)
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Loader.Load(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "load %s", args[0])
		}

		res, runErr := env.Pipeline.Run(ctx, rec)
		if res != nil {
			if err := report.Encode(os.Stdout, res, validateFormat); err != nil {
				return err
			}
		}
		if runErr != nil {
			return runErr
		}

		zap.L().Info("validation complete",
			zap.String("recording", rec.Name),
			zap.String("status", string(res.Validation.Status)),
			zap.Bool("needs_review", res.Validation.NeedsManualReview),
			zap.Float64("cost_usd", res.Cost.Total()),
		)
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateFormat, "format", report.FormatJSON, "output format (json, yaml)")
	rootCmd.AddCommand(validateCmd)
}
