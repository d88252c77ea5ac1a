package main

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/voxcart/voxcart/internal/pipeline"
	"github.com/voxcart/voxcart/internal/session"
	"github.com/voxcart/voxcart/internal/store"
	"github.com/voxcart/voxcart/pkg/coingecko"
	"github.com/voxcart/voxcart/pkg/elevenlabs"
	"github.com/voxcart/voxcart/pkg/exa"
	"github.com/voxcart/voxcart/pkg/openai"
	"github.com/voxcart/voxcart/pkg/rye"
)

// pipelineEnv holds the initialized stores, API clients, and the coordinator
// needed by the ask/buy/quote/serve commands.
type pipelineEnv struct {
	Store       store.Store
	Sessions    session.Store
	Coordinator *pipeline.Coordinator

	redis *redis.Client
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.redis != nil {
		_ = pe.redis.Close()
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the order history store, the session store, all API
// clients, and builds the Coordinator. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate("pipeline"); err != nil {
		return nil, err
	}

	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	env := &pipelineEnv{Store: st}

	sessionTTL := time.Duration(cfg.Session.TTLMins) * time.Minute
	if cfg.Session.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.Session.RedisURL)
		if err != nil {
			env.Close()
			return nil, eris.Wrap(err, "parse redis url")
		}
		env.redis = redis.NewClient(opt)
		if err := env.redis.Ping(ctx).Err(); err != nil {
			env.Close()
			return nil, eris.Wrap(err, "connect redis")
		}
		env.Sessions = session.NewRedisStore(env.redis, sessionTTL)
		zap.L().Info("session store: redis")
	} else {
		env.Sessions = session.NewMemoryStore(sessionTTL)
		zap.L().Info("session store: in-memory")
	}

	llm := openai.NewClient(cfg.OpenAI.Key,
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
		openai.WithModel(cfg.OpenAI.Model),
	)
	search := exa.NewClient(cfg.Exa.Key, exa.WithBaseURL(cfg.Exa.BaseURL))
	oracle := coingecko.NewClient(coingecko.WithBaseURL(cfg.CoinGecko.BaseURL))

	market, err := initMarketplace()
	if err != nil {
		env.Close()
		return nil, err
	}

	// Speech is optional; without a key the pipeline runs silent.
	var tts elevenlabs.Client
	if cfg.ElevenLabs.Key != "" {
		tts = elevenlabs.NewClient(cfg.ElevenLabs.Key,
			elevenlabs.WithBaseURL(cfg.ElevenLabs.BaseURL),
			elevenlabs.WithVoice(cfg.ElevenLabs.VoiceID),
			elevenlabs.WithModelID(cfg.ElevenLabs.ModelID),
		)
	} else {
		zap.L().Debug("VOXCART_ELEVENLABS_KEY not set, speech feedback disabled")
	}

	env.Coordinator = pipeline.New(cfg, env.Sessions, st, llm, search, market, oracle, tts)
	return env, nil
}

// initMarketplace builds the Rye client. Cart mutations need the JWT signing
// key; without one the client can still serve catalog reads.
func initMarketplace() (rye.Client, error) {
	var issuer *rye.CredentialIssuer
	if cfg.Rye.JWTKeyPath != "" {
		pem, err := os.ReadFile(cfg.Rye.JWTKeyPath)
		if err != nil {
			return nil, eris.Wrap(err, "read rye signing key")
		}
		issuer, err = rye.NewCredentialIssuer(pem,
			cfg.Rye.JWTIssuer,
			cfg.Rye.JWTAudience,
			time.Duration(cfg.Rye.JWTTTLMins)*time.Minute,
		)
		if err != nil {
			return nil, err
		}
	} else {
		zap.L().Warn("VOXCART_RYE_JWT_KEY_PATH not set, cart mutations disabled")
	}

	return rye.NewClient(cfg.Rye.BasicAuth, cfg.Rye.ShopperIP, issuer,
		rye.WithEndpoint(cfg.Rye.Endpoint),
		rye.WithRateLimit(cfg.Rye.RateLimitRPS),
	), nil
}
