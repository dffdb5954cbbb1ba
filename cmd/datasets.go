package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pharmscope/license-verify/internal/model"
)

var datasetsKind string

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Manage tagged dataset snapshots",
}

var datasetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dataset snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		datasets, err := st.ListDatasets(cmd.Context(), model.DatasetKind(datasetsKind))
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tTAG\tCREATED\tBY\tDESCRIPTION")
		for _, d := range datasets {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				d.Kind, d.Tag, d.CreatedAt.Format("2006-01-02 15:04"), d.CreatedBy, d.Description)
		}
		return w.Flush()
	},
}

var datasetsDeleteCmd = &cobra.Command{
	Use:   "delete <kind> <tag>",
	Short: "Delete a dataset snapshot, its rows, and its cached scores",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := model.DatasetKind(args[0])
		if !kind.Valid() {
			return fmt.Errorf("unknown dataset kind %q (want pharmacies, states, or validated)", args[0])
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteDataset(cmd.Context(), kind, args[1]); err != nil {
			return err
		}
		zap.L().Info("dataset deleted", zap.String("kind", args[0]), zap.String("tag", args[1]))
		return nil
	},
}

func init() {
	datasetsListCmd.Flags().StringVar(&datasetsKind, "kind", "", "filter by kind (pharmacies, states, validated)")
	datasetsCmd.AddCommand(datasetsListCmd)
	datasetsCmd.AddCommand(datasetsDeleteCmd)
	rootCmd.AddCommand(datasetsCmd)
}
