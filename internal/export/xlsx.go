// Package export writes verification results to spreadsheet files for
// review outside the CLI.
package export

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/pharmscope/license-verify/internal/model"
)

var matrixHeader = []string{
	"Pharmacy", "State", "Status", "Best Score", "License #", "License Status",
	"Results", "Overridden", "Latest Result", "Best Result", "Warnings",
}

// WriteMatrixXLSX writes the matrix view to an XLSX workbook: one row per
// (pharmacy, state) pair plus a summary sheet with per-status counts.
func WriteMatrixXLSX(path string, matrix *model.Matrix) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet("Matrix")
	if err != nil {
		return eris.Wrap(err, "export: add matrix sheet")
	}

	header := sheet.AddRow()
	for _, h := range matrixHeader {
		header.AddCell().Value = h
	}

	for _, r := range matrix.Rows {
		row := sheet.AddRow()
		row.AddCell().Value = r.PharmacyName
		row.AddCell().Value = r.StateCode
		row.AddCell().Value = string(r.Status)

		score := row.AddCell()
		if r.BestScore != nil {
			score.SetFloatWithFormat(*r.BestScore, "0.00")
		}

		row.AddCell().Value = deref(r.LicenseNumber)
		row.AddCell().Value = r.LicenseStatus
		row.AddCell().SetInt(r.ResultCount)
		row.AddCell().SetBool(r.Overridden)
		row.AddCell().Value = deref(r.LatestResultID)
		row.AddCell().Value = deref(r.BestResultID)
		row.AddCell().Value = warningSummary(r.Warnings)
	}

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}
	for _, bucket := range []model.StatusBucket{
		model.StatusMatch, model.StatusWeakMatch, model.StatusNoMatch, model.StatusNoData,
	} {
		row := summary.AddRow()
		row.AddCell().Value = string(bucket)
		row.AddCell().SetInt(matrix.Summary[bucket])
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

// WriteComprehensiveXLSX writes the flat per-result view.
func WriteComprehensiveXLSX(path string, rows []model.ComprehensiveRow) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet("Results")
	if err != nil {
		return eris.Wrap(err, "export: add results sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"Pharmacy", "State", "Status", "License #", "Result Status",
		"Address", "City", "Zip", "Score", "Searched At",
	} {
		header.AddCell().Value = h
	}

	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().Value = r.PharmacyName
		row.AddCell().Value = r.StateCode
		row.AddCell().Value = string(r.Status)
		row.AddCell().Value = deref(r.LicenseNumber)

		if r.Result != nil {
			row.AddCell().Value = string(r.Result.ResultStatus)
			row.AddCell().Value = r.Result.Address
			row.AddCell().Value = r.Result.City
			row.AddCell().Value = r.Result.Zip
		} else {
			for i := 0; i < 4; i++ {
				row.AddCell()
			}
		}

		score := row.AddCell()
		if r.Score != nil {
			score.SetFloatWithFormat(r.Score.Overall, "0.00")
		}

		searched := row.AddCell()
		if r.SearchedAt != nil {
			searched.Value = r.SearchedAt.UTC().Format("2006-01-02 15:04:05")
		}
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func warningSummary(warnings []model.Warning) string {
	if len(warnings) == 0 {
		return ""
	}
	kinds := make([]string, len(warnings))
	for i, w := range warnings {
		kinds[i] = string(w.Kind)
	}
	return fmt.Sprintf("%d: %s", len(warnings), strings.Join(kinds, "; "))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
