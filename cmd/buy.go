package main

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voxcart/voxcart/internal/model"
)

var buySessionID string

var buyCmd = &cobra.Command{
	Use:   "buy [product-id]",
	Short: "Create a marketplace cart for a recommended product (fiat)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		purchase, err := env.Coordinator.Buy(ctx, buySessionID, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(purchase)
	},
}

var quoteSessionID string

var quoteCmd = &cobra.Command{
	Use:   "quote [product-id]",
	Short: "Quote a recommended product in the settlement asset (crypto)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		purchase, quote, transfer, err := env.Coordinator.BuyCrypto(ctx, quoteSessionID, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Purchase *model.Purchase        `json:"purchase"`
			Quote    *model.SettlementQuote `json:"quote"`
			Transfer *model.TransferRequest `json:"transfer"`
		}{purchase, quote, transfer})
	},
}

func init() {
	buyCmd.Flags().StringVar(&buySessionID, "session", "", "session holding the recommendation")
	_ = buyCmd.MarkFlagRequired("session")
	quoteCmd.Flags().StringVar(&quoteSessionID, "session", "", "session holding the recommendation")
	_ = quoteCmd.MarkFlagRequired("session")
	rootCmd.AddCommand(buyCmd)
	rootCmd.AddCommand(quoteCmd)
}
