package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pharmscope/license-verify/internal/model"
)

var (
	checkPharmaciesTag string
	checkStatesTag     string
	checkValidatedTag  string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check override consistency against current datasets",
	Long:  "Runs the consistency checks between validated overrides and the current pharmacies/states datasets without triggering any scoring. Findings are advisory; the command fails only on infrastructure errors.",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()
		engine := initEngine(st)

		warnings, err := engine.CheckConsistency(cmd.Context(), model.DatasetTriple{
			PharmaciesTag: checkPharmaciesTag,
			StatesTag:     checkStatesTag,
			ValidatedTag:  checkValidatedTag,
		})
		if err != nil {
			return err
		}

		if len(warnings) == 0 {
			fmt.Println("no inconsistencies found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SEVERITY\tKIND\tPHARMACY\tSTATE\tDETAIL")
		for _, warning := range warnings {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				warning.Severity, warning.Kind, warning.PharmacyName, warning.StateCode, warning.Detail)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d findings\n", len(warnings))
		return nil
	},
}

func init() {
	f := checkCmd.Flags()
	f.StringVar(&checkPharmaciesTag, "pharmacies", "", "pharmacies dataset tag (required)")
	f.StringVar(&checkStatesTag, "states", "", "states dataset tag (required)")
	f.StringVar(&checkValidatedTag, "validated", "", "validated dataset tag (required)")
	_ = checkCmd.MarkFlagRequired("pharmacies")
	_ = checkCmd.MarkFlagRequired("states")
	_ = checkCmd.MarkFlagRequired("validated")
	rootCmd.AddCommand(checkCmd)
}
