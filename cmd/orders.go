package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/voxcart/voxcart/internal/model"
	"github.com/voxcart/voxcart/internal/store"
)

var (
	ordersSessionID string
	ordersMethod    string
	ordersLimit     int
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List recorded purchases",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		purchases, err := st.ListPurchases(cmd.Context(), store.PurchaseFilter{
			SessionID: ordersSessionID,
			Method:    model.PaymentMethod(ordersMethod),
			Limit:     ordersLimit,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(purchases)
	},
}

var (
	turnsSessionID string
	turnsStatus    string
	turnsLimit     int
)

var turnsCmd = &cobra.Command{
	Use:   "turns",
	Short: "List recorded shopping turns",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		turns, err := st.ListTurns(cmd.Context(), store.TurnFilter{
			SessionID: turnsSessionID,
			Status:    model.TurnStatus(turnsStatus),
			Limit:     turnsLimit,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(turns)
	},
}

func init() {
	ordersCmd.Flags().StringVar(&ordersSessionID, "session", "", "filter by session id")
	ordersCmd.Flags().StringVar(&ordersMethod, "method", "", "filter by payment method (fiat or crypto)")
	ordersCmd.Flags().IntVar(&ordersLimit, "limit", 50, "maximum rows returned")
	turnsCmd.Flags().StringVar(&turnsSessionID, "session", "", "filter by session id")
	turnsCmd.Flags().StringVar(&turnsStatus, "status", "", "filter by turn status")
	turnsCmd.Flags().IntVar(&turnsLimit, "limit", 50, "maximum rows returned")
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(turnsCmd)
}
