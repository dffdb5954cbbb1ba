package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pharmscope/license-verify/internal/fixture"
	"github.com/pharmscope/license-verify/internal/model"
	"github.com/pharmscope/license-verify/internal/store"
)

var seedCreatedBy string

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Import a seed file as tagged dataset snapshots",
	Long:  "Reads a YAML seed file holding pharmacies, state search results, and validated overrides, and imports each present section as a new immutable dataset under its tag.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, err := fixture.Load(args[0])
		if err != nil {
			return err
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		return importSeed(cmd.Context(), st, seed)
	},
}

func importSeed(ctx context.Context, st store.Store, seed *fixture.Seed) error {
	log := zap.L()

	if seed.Pharmacies != nil {
		ds, err := st.CreateDataset(ctx, model.DatasetPharmacies, seed.Pharmacies.Tag, seedCreatedBy, "seed import")
		if err != nil {
			return err
		}
		n, err := st.InsertPharmacies(ctx, ds.ID, seed.PharmacyRows())
		if err != nil {
			return err
		}
		log.Info("imported pharmacies", zap.String("tag", ds.Tag), zap.Int64("rows", n))
	}

	if seed.States != nil {
		ds, err := st.CreateDataset(ctx, model.DatasetStates, seed.States.Tag, seedCreatedBy, "seed import")
		if err != nil {
			return err
		}
		n, err := st.InsertSearchResults(ctx, ds.ID, seed.SearchResultRows())
		if err != nil {
			return err
		}
		log.Info("imported search results", zap.String("tag", ds.Tag), zap.Int64("rows", n))
	}

	if seed.Validated != nil {
		ds, err := st.CreateDataset(ctx, model.DatasetValidated, seed.Validated.Tag, seedCreatedBy, "seed import")
		if err != nil {
			return err
		}
		rows := seed.OverrideRows()
		for i := range rows {
			rows[i].DatasetID = ds.ID
			if err := st.InsertOverride(ctx, rows[i]); err != nil {
				return err
			}
		}
		log.Info("imported overrides", zap.String("tag", ds.Tag), zap.Int("rows", len(rows)))
	}

	return nil
}

func init() {
	seedCmd.Flags().StringVar(&seedCreatedBy, "created-by", "", "recorded as the datasets' creator")
	rootCmd.AddCommand(seedCmd)
}
