package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voxcart/voxcart/internal/model"
)

var (
	askSessionID string
	askBudgetMin float64
	askBudgetMax float64
	askAudioPath string
)

var askCmd = &cobra.Command{
	Use:   "ask [utterance]",
	Short: "Run one shopping turn for an utterance",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		sessionID := askSessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		var budget *model.BudgetRange
		if askBudgetMin > 0 || askBudgetMax > 0 {
			budget = &model.BudgetRange{Lower: askBudgetMin, Upper: askBudgetMax}
		}

		result, err := env.Coordinator.ProcessUtterance(ctx, sessionID, strings.Join(args, " "), budget)
		if err != nil {
			return err
		}

		if askAudioPath != "" && len(result.Audio) > 0 {
			if err := os.WriteFile(askAudioPath, result.Audio, 0o644); err != nil {
				return eris.Wrap(err, "write audio")
			}
			zap.L().Info("audio written", zap.String("path", askAudioPath))
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(turnOutput{
			SessionID: sessionID,
			TurnID:    result.TurnID,
			Status:    result.Status,
			Intent:    result.Intent,
			Spoken:    result.Spoken,
			Products:  result.Products,
		})
	},
}

// turnOutput is the turn result without the raw audio bytes, which would
// render as a giant base64 blob on stdout.
type turnOutput struct {
	SessionID string                `json:"sessionId"`
	TurnID    string                `json:"turnId"`
	Status    model.TurnStatus      `json:"status"`
	Intent    model.Intent          `json:"intent"`
	Spoken    string                `json:"spoken,omitempty"`
	Products  []model.ProductRecord `json:"products"`
}

func init() {
	askCmd.Flags().StringVar(&askSessionID, "session", "", "session id (default: a fresh id)")
	askCmd.Flags().Float64Var(&askBudgetMin, "budget-min", 0, "lower bound of the fiat budget")
	askCmd.Flags().Float64Var(&askBudgetMax, "budget-max", 0, "upper bound of the fiat budget")
	askCmd.Flags().StringVar(&askAudioPath, "audio", "", "write spoken feedback to this file")
	rootCmd.AddCommand(askCmd)
}
