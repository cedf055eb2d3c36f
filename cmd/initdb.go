package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agrozem/landsync/internal/store"
)

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create or migrate the store schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		fmt.Printf("Store schema up to date (%s)\n", cfg.Store.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initdbCmd)
}
