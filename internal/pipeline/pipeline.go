// Package pipeline implements the multi-stage fulfillment pipeline: intent
// extraction, retrieval-augmented product discovery, per-identifier detail
// resolution, cart creation, and dual-currency checkout settlement.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/voxcart/voxcart/internal/config"
	"github.com/voxcart/voxcart/internal/model"
	"github.com/voxcart/voxcart/internal/session"
	"github.com/voxcart/voxcart/internal/store"
	"github.com/voxcart/voxcart/pkg/coingecko"
	"github.com/voxcart/voxcart/pkg/elevenlabs"
	"github.com/voxcart/voxcart/pkg/exa"
	"github.com/voxcart/voxcart/pkg/openai"
	"github.com/voxcart/voxcart/pkg/rye"
)

// Coordinator sequences the pipeline stages per user turn and owns the
// session state machine. Component failures are mapped to user-visible
// outcomes; no failure leaves a session stuck in an in-flight state.
type Coordinator struct {
	cfg      *config.Config
	sessions session.Store
	history  store.Store
	llm      openai.Client
	search   exa.Client
	market   rye.Client
	oracle   coingecko.Client
	tts      elevenlabs.Client

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New creates a Coordinator with all collaborators.
func New(
	cfg *config.Config,
	sessions session.Store,
	history store.Store,
	llm openai.Client,
	search exa.Client,
	market rye.Client,
	oracle coingecko.Client,
	tts elevenlabs.Client,
) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		sessions: sessions,
		history:  history,
		llm:      llm,
		search:   search,
		market:   market,
		oracle:   oracle,
		tts:      tts,
		inFlight: make(map[string]struct{}),
	}
}

// TurnResult is the user-visible outcome of one utterance.
type TurnResult struct {
	TurnID   string                `json:"turnId"`
	Status   model.TurnStatus      `json:"status"`
	Intent   model.Intent          `json:"intent"`
	Spoken   string                `json:"spoken,omitempty"`
	Audio    []byte                `json:"audio,omitempty"`
	Products []model.ProductRecord `json:"products"`
}

// acquire marks a session's turn as in flight, rejecting a second turn while
// one is already running in this process.
func (c *Coordinator) acquire(sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[sessionID]; busy {
		return eris.Wrapf(ErrBusy, "session %s", sessionID)
	}
	c.inFlight[sessionID] = struct{}{}
	return nil
}

func (c *Coordinator) release(sessionID string) {
	c.mu.Lock()
	delete(c.inFlight, sessionID)
	c.mu.Unlock()
}

// loadOrCreate fetches the session, creating a fresh idle one when absent.
func (c *Coordinator) loadOrCreate(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := c.sessions.Get(ctx, sessionID)
	if err == nil {
		return sess, nil
	}
	if errors.Is(err, session.ErrNotFound) {
		return session.New(sessionID), nil
	}
	return nil, err
}

func (c *Coordinator) save(ctx context.Context, sess *session.Session) {
	if err := c.sessions.Put(ctx, sess); err != nil {
		zap.L().Warn("pipeline: failed to persist session",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
	}
}

// ProcessUtterance runs one full turn: extraction, discovery, resolution.
// The session always ends the turn in a stable state; on failure it resolves
// to Recommending when recommendations exist, Idle otherwise.
func (c *Coordinator) ProcessUtterance(ctx context.Context, sessionID, utterance string, budget *model.BudgetRange) (*TurnResult, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, eris.Wrapf(ErrEmptyUtterance, "session %s", sessionID)
	}

	if err := c.acquire(sessionID); err != nil {
		return nil, err
	}
	defer c.release(sessionID)

	sess, err := c.loadOrCreate(ctx, sessionID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load session")
	}
	if sess.State.InFlight() {
		return nil, eris.Wrapf(ErrBusy, "session %s is %s", sessionID, sess.State)
	}

	log := zap.L().With(zap.String("session_id", sessionID))
	log.Info("pipeline: turn started", zap.String("utterance", utterance))

	turn, err := c.history.CreateTurn(ctx, sessionID, utterance)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create turn")
	}

	// Whatever happens below, the session must land in a stable state.
	completed := false
	defer func() {
		if completed {
			return
		}
		if len(sess.Products) > 0 {
			sess.State = model.StateRecommending
		} else {
			sess.Reset()
		}
		c.save(ctx, sess)
	}()

	if err := sess.Advance(model.StateCapturing); err != nil {
		return nil, err
	}
	sess.Utterance = utterance
	if err := sess.Advance(model.StateExtracting); err != nil {
		return nil, err
	}
	c.save(ctx, sess)

	intent, err := ExtractIntent(ctx, c.llm, utterance)
	if err != nil {
		c.failTurn(ctx, turn.ID, err)
		return nil, err
	}

	if intent.Unclear() {
		spoken := model.NotUnderstoodSentinel
		result := &TurnResult{
			TurnID: turn.ID,
			Status: model.TurnStatusNotUnderstood,
			Intent: intent,
			Spoken: spoken,
			Audio:  Speak(ctx, c.tts, spoken),
		}
		c.completeTurn(ctx, turn.ID, model.TurnStatusNotUnderstood, &model.TurnRecord{Intent: intent})
		sess.Reset()
		c.save(ctx, sess)
		completed = true
		log.Info("pipeline: utterance not understood")
		return result, nil
	}

	if question, ok := intent.Question(); ok {
		result := &TurnResult{
			TurnID: turn.ID,
			Status: model.TurnStatusQuestion,
			Intent: intent,
			Spoken: question,
			Audio:  Speak(ctx, c.tts, question),
		}
		c.completeTurn(ctx, turn.ID, model.TurnStatusQuestion, &model.TurnRecord{Intent: intent})
		sess.Reset()
		c.save(ctx, sess)
		completed = true
		log.Info("pipeline: clarifying question", zap.String("question", question))
		return result, nil
	}

	sess.Intent = intent
	if err := sess.Advance(model.StateDiscovering); err != nil {
		return nil, err
	}
	c.save(ctx, sess)

	// Status feedback while discovery runs.
	searchingFor := "Searching for: " + intent.Joined()
	Speak(ctx, c.tts, searchingFor)

	candidates, err := Discover(ctx, c.search, c.llm, intent, budget, DiscoveryOptions{
		MinCandidates: c.cfg.Pipeline.MinCandidates,
		MaxCandidates: c.cfg.Pipeline.MaxCandidates,
		NumResults:    c.cfg.Exa.NumResults,
	})
	if err != nil {
		c.failTurn(ctx, turn.ID, err)
		return nil, err
	}

	products := Resolve(ctx, c.market, candidates, c.cfg.Pipeline.ResolveConcurrency)

	sess.Candidates = candidates
	sess.Products = products
	if err := sess.Advance(model.StateRecommending); err != nil {
		return nil, err
	}
	c.save(ctx, sess)
	completed = true

	record := &model.TurnRecord{Intent: intent, Candidates: candidates, Products: products}
	c.completeTurn(ctx, turn.ID, model.TurnStatusRecommended, record)

	spoken := recommendationSummary(products)
	result := &TurnResult{
		TurnID:   turn.ID,
		Status:   model.TurnStatusRecommended,
		Intent:   intent,
		Spoken:   spoken,
		Audio:    Speak(ctx, c.tts, spoken),
		Products: products,
	}
	log.Info("pipeline: turn complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("products", len(products)),
	)
	return result, nil
}

// Buy creates a marketplace cart for a recommended product (fiat path) and
// records the purchase.
func (c *Coordinator) Buy(ctx context.Context, sessionID, productID string) (*model.Purchase, error) {
	sess, err := c.loadOrCreate(ctx, sessionID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load session")
	}

	product, ok := findProduct(sess.Products, productID)
	if !ok {
		return nil, eris.Wrapf(ErrNoRecommendation, "session %s: %s", sessionID, productID)
	}

	c.beginPurchase(ctx, sess)
	defer func() {
		if sess.State == model.StatePurchasing {
			sess.State = model.StateRecommending
			c.save(ctx, sess)
		}
	}()

	cart, err := Checkout(ctx, c.market, product.Identifier(), c.cfg.Buyer)
	if err != nil {
		return nil, err
	}

	purchase := &model.Purchase{
		SessionID: sessionID,
		Product:   product,
		Method:    model.PaymentFiat,
		CartID:    cart.ID,
		Total:     cart.Cost.Total,
	}
	if err := c.history.RecordPurchase(ctx, purchase); err != nil {
		zap.L().Warn("pipeline: failed to record purchase", zap.Error(err))
	}

	sess.Cart = cart
	sess.State = model.StatePurchased
	c.save(ctx, sess)

	zap.L().Info("pipeline: purchase complete",
		zap.String("session_id", sessionID),
		zap.String("cart_id", cart.ID),
		zap.String("product", product.Title),
	)
	return purchase, nil
}

// BuyCrypto quotes a recommended product's fiat total in the settlement
// asset and returns the transfer request for the external wallet signer. The
// purchase is recorded once the quote is produced; signing and broadcast
// happen outside this core.
func (c *Coordinator) BuyCrypto(ctx context.Context, sessionID, productID string) (*model.Purchase, *model.SettlementQuote, *model.TransferRequest, error) {
	sess, err := c.loadOrCreate(ctx, sessionID)
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "pipeline: load session")
	}

	product, ok := findProduct(sess.Products, productID)
	if !ok {
		return nil, nil, nil, eris.Wrapf(ErrNoRecommendation, "session %s: %s", sessionID, productID)
	}

	c.beginPurchase(ctx, sess)
	defer func() {
		if sess.State == model.StatePurchasing {
			sess.State = model.StateRecommending
			c.save(ctx, sess)
		}
	}()

	quote, transfer, err := QuoteAndTransfer(ctx, c.oracle, CryptoSettings{
		SettlementAddress: c.cfg.Crypto.SettlementAddress,
		Asset:             c.cfg.Crypto.Asset,
		QuoteCurrency:     c.cfg.Crypto.QuoteCurrency,
	}, []model.ProductRecord{product})
	if err != nil {
		return nil, nil, nil, err
	}

	purchase := &model.Purchase{
		SessionID: sessionID,
		Product:   product,
		Method:    model.PaymentCrypto,
		Total: model.Money{
			Currency:     strings.ToUpper(quote.QuoteCurrency),
			DisplayValue: model.FormatMoney(quote.QuoteCurrency, quote.FiatTotal),
			Value:        quote.FiatTotal,
		},
		TxRef: transfer.To,
	}
	if err := c.history.RecordPurchase(ctx, purchase); err != nil {
		zap.L().Warn("pipeline: failed to record purchase", zap.Error(err))
	}

	sess.State = model.StatePurchased
	c.save(ctx, sess)

	zap.L().Info("pipeline: crypto settlement quoted",
		zap.String("session_id", sessionID),
		zap.String("product", product.Title),
		zap.String("amount_wei", quote.AmountWei.String()),
	)
	return purchase, quote, transfer, nil
}

// Reset returns a session to idle, discarding its recommendation set.
func (c *Coordinator) Reset(ctx context.Context, sessionID string) error {
	sess, err := c.loadOrCreate(ctx, sessionID)
	if err != nil {
		return eris.Wrap(err, "pipeline: load session")
	}
	sess.Reset()
	c.save(ctx, sess)
	return nil
}

// Session exposes the current session snapshot for the API layer.
func (c *Coordinator) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	return c.sessions.Get(ctx, sessionID)
}

// beginPurchase moves a session into Purchasing. Concurrent buy actions on
// different products are independent: a session already in Purchasing stays
// there rather than failing the second action.
func (c *Coordinator) beginPurchase(ctx context.Context, sess *session.Session) {
	if sess.State == model.StatePurchasing {
		return
	}
	if err := sess.Advance(model.StatePurchasing); err != nil {
		// Buys from Purchased or Idle are driven by the recommendation set,
		// not the state machine; force the purchasing stage.
		sess.State = model.StatePurchasing
	}
	c.save(ctx, sess)
}

func (c *Coordinator) completeTurn(ctx context.Context, turnID string, status model.TurnStatus, record *model.TurnRecord) {
	if err := c.history.CompleteTurn(ctx, turnID, status, record); err != nil {
		zap.L().Warn("pipeline: failed to complete turn", zap.String("turn_id", turnID), zap.Error(err))
	}
}

func (c *Coordinator) failTurn(ctx context.Context, turnID string, cause error) {
	record := &model.TurnRecord{Error: cause.Error()}
	if err := c.history.CompleteTurn(ctx, turnID, model.TurnStatusFailed, record); err != nil {
		zap.L().Warn("pipeline: failed to record turn failure", zap.String("turn_id", turnID), zap.Error(err))
	}
}

func findProduct(products []model.ProductRecord, id string) (model.ProductRecord, bool) {
	for _, p := range products {
		if p.Identifier() == id || p.ID == id {
			return p, true
		}
	}
	return model.ProductRecord{}, false
}

func recommendationSummary(products []model.ProductRecord) string {
	if len(products) == 0 {
		return "I couldn't find anything matching that. Try describing it differently."
	}
	titles := make([]string, 0, len(products))
	for i, p := range products {
		if i >= 3 {
			break
		}
		titles = append(titles, p.Title)
	}
	return fmt.Sprintf("I found %d options. Top picks: %s.", len(products), strings.Join(titles, "; "))
}
