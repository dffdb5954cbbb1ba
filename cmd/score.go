package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	scorePharmaciesTag string
	scoreStatesTag     string
	scoreListMissing   bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute and cache address scores for a dataset pair",
	Long: `Scores every unscored (pharmacy, search result) pairing for the given
pharmacies and states dataset tags. Scores are cached permanently per
dataset combination, so rerunning is cheap and concurrent runs are safe.

Examples:
  # Score everything missing for a dataset pair
  licverify score --pharmacies 2026-08-01 --states 2026-08-15

  # See what would be scored without scoring it
  licverify score --pharmacies 2026-08-01 --states 2026-08-15 --list-missing`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		engine := initEngine(st)

		if scoreListMissing {
			pairs, err := engine.ListMissingScores(ctx, scorePharmaciesTag, scoreStatesTag)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PHARMACY ID\tRESULT ID\tREFERENCE\tCANDIDATE")
			for _, p := range pairs {
				fmt.Fprintf(w, "%s\t%s\t%s, %s\t%s, %s\n",
					p.PharmacyID, p.ResultID,
					p.Reference.Street, p.Reference.City,
					p.Candidate.Street, p.Candidate.City)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("%d pairings awaiting scores\n", len(pairs))
			return nil
		}

		report, err := engine.EnsureScored(ctx, scorePharmaciesTag, scoreStatesTag)
		if err != nil {
			return err
		}
		zap.L().Info("scoring run finished",
			zap.Int("computed", report.Computed),
			zap.Int("errors", report.Errors))
		fmt.Printf("computed %d scores, %d errors\n", report.Computed, report.Errors)
		return nil
	},
}

func init() {
	f := scoreCmd.Flags()
	f.StringVar(&scorePharmaciesTag, "pharmacies", "", "pharmacies dataset tag (required)")
	f.StringVar(&scoreStatesTag, "states", "", "states dataset tag (required)")
	f.BoolVar(&scoreListMissing, "list-missing", false, "list unscored pairings instead of scoring them")
	_ = scoreCmd.MarkFlagRequired("pharmacies")
	_ = scoreCmd.MarkFlagRequired("states")
	rootCmd.AddCommand(scoreCmd)
}
