package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-validator/internal/config"
	"github.com/sells-group/lead-validator/internal/model"
	"github.com/sells-group/lead-validator/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect validation run history",
	Long:  "Commands for listing, viewing, and summarizing validation runs in the audit store.",
}

// openStore opens and migrates the audit store for the runs commands.
func openStore(cmd *cobra.Command) (store.Store, error) {
	if err := cfg.Validate(config.ModeStore); err != nil {
		return nil, err
	}
	st, err := initStore(cmd.Context())
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List validation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		recording, _ := cmd.Flags().GetString("recording")
		phone, _ := cmd.Flags().GetString("phone")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:    model.RunStatus(status),
			Recording: recording,
			Phone:     phone,
			Limit:     limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			zap.L().Info("no runs match the filter")
			return nil
		}
		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:     "show <run-id>",
	Aliases: []string{"get"},
	Short:   "Show full details of a run",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize run verdicts and cost over a time window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(cmd.Context(), store.RunFilter{Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		since, _ := cmd.Flags().GetDuration("since")
		if since > 0 {
			runs = runsSince(runs, time.Now().Add(-since))
		}

		formatRunStats(os.Stdout, computeRunStats(runs))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (queued, running, complete, failed)")
	runsListCmd.Flags().String("recording", "", "filter by recording file name")
	runsListCmd.Flags().String("phone", "", "filter by phone number from the file name")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "only count runs created within this window (0 for all)")

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

func runsSince(runs []model.Run, cutoff time.Time) []model.Run {
	out := runs[:0:0]
	for _, r := range runs {
		if !r.CreatedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// runStats summarizes a window of runs. Verdict counts cover completed
// runs only.
type runStats struct {
	Total       int
	Complete    int
	Failed      int
	Other       int
	Approved    int
	Rejected    int
	NeedsReview int
	Flagged     int
	TotalCost   float64
	AvgDurSecs  float64
}

func computeRunStats(runs []model.Run) runStats {
	var s runStats
	s.Total = len(runs)

	var totalDur time.Duration
	var durCount int

	for _, r := range runs {
		s.TotalCost += r.Cost
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
			totalDur += r.UpdatedAt.Sub(r.CreatedAt)
			durCount++
			if r.Result == nil {
				continue
			}
			switch r.Result.Status {
			case model.ClassificationApproved:
				s.Approved++
			case model.ClassificationRejected:
				s.Rejected++
			default:
				s.NeedsReview++
			}
			if r.Result.NeedsManualReview {
				s.Flagged++
			}
		case model.RunStatusFailed:
			s.Failed++
		default:
			s.Other++
		}
	}

	if durCount > 0 {
		s.AvgDurSecs = totalDur.Seconds() / float64(durCount)
	}
	return s
}

// formatRunsList prints one row per run. A trailing "*" on the verdict
// marks runs flagged for manual review.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tRECORDING\tPHONE\tSTATUS\tVERDICT\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t---------\t-----\t------\t-------\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		recording := filepath.Base(r.Recording)
		if len(recording) > 40 {
			recording = recording[:37] + "..."
		}

		verdict := ""
		if r.Result != nil {
			verdict = string(r.Result.Status)
			if r.Result.NeedsManualReview {
				verdict += "*"
			}
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			recording,
			r.Phone,
			r.Status,
			verdict,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

func formatRunStats(out io.Writer, s runStats) {
	lines := [][2]string{
		{"Total runs", strconv.Itoa(s.Total)},
		{"Complete", strconv.Itoa(s.Complete)},
		{"  Approved", strconv.Itoa(s.Approved)},
		{"  Rejected", strconv.Itoa(s.Rejected)},
		{"  Needs review", strconv.Itoa(s.NeedsReview)},
		{"  Flagged", strconv.Itoa(s.Flagged)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Other", strconv.Itoa(s.Other)},
		{"Total cost", fmt.Sprintf("$%.4f", s.TotalCost)},
	}
	if s.AvgDurSecs > 0 {
		lines = append(lines, [2]string{"Avg duration", fmt.Sprintf("%.1fs", s.AvgDurSecs)})
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, l := range lines {
		_, _ = fmt.Fprintf(w, "%s:\t%s\n", l[0], l[1])
	}
	_ = w.Flush()
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
