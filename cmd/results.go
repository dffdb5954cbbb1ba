package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/pharmscope/license-verify/internal/config"
	"github.com/pharmscope/license-verify/internal/export"
	"github.com/pharmscope/license-verify/internal/model"
	"github.com/pharmscope/license-verify/internal/verify"
)

var (
	resultsPharmaciesTag string
	resultsStatesTag     string
	resultsValidatedTag  string
	resultsView          string
	resultsXLSX          string
	resultsJSON          bool
	resultsProfile       string
	resultsProfilesFile  string
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Produce verification results for a dataset triple",
	Long: `Builds the verification output for a (pharmacies, states, validated)
dataset triple, scoring any missing pairings first.

Views:
  matrix         one row per (pharmacy, state) pair, aggregated (default)
  comprehensive  one row per raw search result, unaggregated

Examples:
  licverify results --pharmacies 2026-08-01 --states 2026-08-15
  licverify results --pharmacies 2026-08-01 --states 2026-08-15 --validated 2026-07 --view comprehensive
  licverify results --pharmacies 2026-08-01 --states 2026-08-15 --xlsx matrix.xlsx
  licverify results --pharmacies 2026-08-01 --states 2026-08-15 --profile strict --profiles profiles.yaml`,
	RunE: runResults,
}

func runResults(cmd *cobra.Command, args []string) error {
	classify := cfg.Classify
	if resultsProfile != "" {
		if resultsProfilesFile == "" {
			return eris.New("--profile requires --profiles")
		}
		profiles, err := config.LoadProfiles(resultsProfilesFile)
		if err != nil {
			return err
		}
		p, ok := profiles[resultsProfile]
		if !ok {
			return eris.Errorf("profile %q not found in %s", resultsProfile, resultsProfilesFile)
		}
		classify = p
	}

	st, err := initStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()
	engine := verify.New(st, cfg.Scoring, classify)

	triple := model.DatasetTriple{
		PharmaciesTag: resultsPharmaciesTag,
		StatesTag:     resultsStatesTag,
		ValidatedTag:  resultsValidatedTag,
	}

	switch resultsView {
	case "matrix":
		matrix, err := engine.Matrix(cmd.Context(), triple)
		if err != nil {
			return err
		}
		if resultsXLSX != "" {
			return export.WriteMatrixXLSX(resultsXLSX, matrix)
		}
		if resultsJSON {
			return json.NewEncoder(os.Stdout).Encode(matrix)
		}
		return printMatrix(matrix)

	case "comprehensive":
		rows, err := engine.Comprehensive(cmd.Context(), triple)
		if err != nil {
			return err
		}
		if resultsXLSX != "" {
			return export.WriteComprehensiveXLSX(resultsXLSX, rows)
		}
		if resultsJSON {
			return json.NewEncoder(os.Stdout).Encode(rows)
		}
		return printComprehensive(rows)

	default:
		return eris.Errorf("unknown view %q (want matrix or comprehensive)", resultsView)
	}
}

func printMatrix(matrix *model.Matrix) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PHARMACY\tSTATE\tSTATUS\tSCORE\tLICENSE\tRESULTS\tOVERRIDDEN\tWARNINGS")
	for _, r := range matrix.Rows {
		score := "-"
		if r.BestScore != nil {
			score = fmt.Sprintf("%.1f", *r.BestScore)
		}
		license := "-"
		if r.LicenseNumber != nil {
			license = *r.LicenseNumber
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%t\t%d\n",
			r.PharmacyName, r.StateCode, r.Status, score, license, r.ResultCount, r.Overridden, len(r.Warnings))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nmatch: %d  weak_match: %d  no_match: %d  no_data: %d\n",
		matrix.Summary[model.StatusMatch], matrix.Summary[model.StatusWeakMatch],
		matrix.Summary[model.StatusNoMatch], matrix.Summary[model.StatusNoData])
	return nil
}

func printComprehensive(rows []model.ComprehensiveRow) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PHARMACY\tSTATE\tSTATUS\tSCORE\tLICENSE\tADDRESS\tSEARCHED")
	for _, r := range rows {
		score, license, addr, searched := "-", "-", "-", "-"
		if r.Score != nil {
			score = fmt.Sprintf("%.1f", r.Score.Overall)
		}
		if r.LicenseNumber != nil {
			license = *r.LicenseNumber
		}
		if r.Result != nil {
			addr = r.Result.Address
		}
		if r.SearchedAt != nil {
			searched = r.SearchedAt.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.PharmacyName, r.StateCode, r.Status, score, license, addr, searched)
	}
	return w.Flush()
}

func init() {
	f := resultsCmd.Flags()
	f.StringVar(&resultsPharmaciesTag, "pharmacies", "", "pharmacies dataset tag (required)")
	f.StringVar(&resultsStatesTag, "states", "", "states dataset tag (required)")
	f.StringVar(&resultsValidatedTag, "validated", "", "validated dataset tag (optional: omit for no overrides)")
	f.StringVar(&resultsView, "view", "matrix", "output view: matrix or comprehensive")
	f.StringVar(&resultsXLSX, "xlsx", "", "write the view to an XLSX file instead of stdout")
	f.BoolVar(&resultsJSON, "json", false, "print the view as JSON")
	f.StringVar(&resultsProfile, "profile", "", "classification threshold profile name")
	f.StringVar(&resultsProfilesFile, "profiles", "", "path to a threshold profiles YAML file")
	_ = resultsCmd.MarkFlagRequired("pharmacies")
	_ = resultsCmd.MarkFlagRequired("states")
	rootCmd.AddCommand(resultsCmd)
}
