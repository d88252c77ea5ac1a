package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voxcart/voxcart/internal/model"
	"github.com/voxcart/voxcart/internal/pipeline"
	"github.com/voxcart/voxcart/internal/session"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for shopping turns and checkout",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env.Coordinator),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(coord *pipeline.Coordinator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	a := &api{coord: coord}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/turns", a.handleTurn)
	r.Post("/buy", a.handleBuy)
	r.Post("/quote", a.handleQuote)
	r.Get("/sessions/{id}", a.handleSession)
	r.Post("/sessions/{id}/reset", a.handleReset)

	return r
}

type api struct {
	coord *pipeline.Coordinator
}

type turnRequest struct {
	SessionID string             `json:"sessionId"`
	Utterance string             `json:"utterance"`
	Budget    *model.BudgetRange `json:"budget,omitempty"`
}

func (a *api) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	result, err := a.coord.ProcessUtterance(r.Context(), req.SessionID, req.Utterance, req.Budget)
	if err != nil {
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		SessionID string `json:"sessionId"`
		*pipeline.TurnResult
	}{req.SessionID, result})
}

type buyRequest struct {
	SessionID string `json:"sessionId"`
	ProductID string `json:"productId"`
}

func (a *api) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" || req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "sessionId and productId are required")
		return
	}

	purchase, err := a.coord.Buy(r.Context(), req.SessionID, req.ProductID)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, purchase)
}

func (a *api) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" || req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "sessionId and productId are required")
		return
	}

	purchase, quote, transfer, err := a.coord.BuyCrypto(r.Context(), req.SessionID, req.ProductID)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Purchase *model.Purchase        `json:"purchase"`
		Quote    *model.SettlementQuote `json:"quote"`
		Transfer *model.TransferRequest `json:"transfer"`
	}{purchase, quote, transfer})
}

func (a *api) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := a.coord.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *api) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := a.coord.Reset(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// writePipelineError maps pipeline failures onto HTTP statuses.
func writePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrEmptyUtterance):
		writeError(w, http.StatusBadRequest, "utterance is required")
	case errors.Is(err, pipeline.ErrBusy):
		writeError(w, http.StatusConflict, "a turn is already in progress for this session")
	case errors.Is(err, pipeline.ErrNoRecommendation):
		writeError(w, http.StatusNotFound, "product is not in the session's recommendations")
	case errors.Is(err, pipeline.ErrCartCreation),
		errors.Is(err, pipeline.ErrDiscoveryFormat),
		errors.Is(err, pipeline.ErrInvalidQuote):
		zap.L().Error("upstream pipeline failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, eris.Cause(err).Error())
	default:
		zap.L().Error("turn failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "turn failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
