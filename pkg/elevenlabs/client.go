// Package elevenlabs provides a client for the ElevenLabs text-to-speech API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultVoiceID = "29vD33N1CtxCmqQRPOHJ"
	defaultModelID = "eleven_multilingual_v2"
)

// Client synthesizes speech from text.
type Client interface {
	// Synthesize renders the text as audio and returns the raw payload.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// voiceSettings tunes the synthesis voice.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithVoice overrides the default voice identifier.
func WithVoice(voiceID string) Option {
	return func(c *httpClient) {
		c.voiceID = voiceID
	}
}

// WithModelID overrides the default synthesis model.
func WithModelID(modelID string) Option {
	return func(c *httpClient) {
		c.modelID = modelID
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	voiceID string
	modelID string
	http    *http.Client
}

// NewClient creates an ElevenLabs TTS client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		voiceID: defaultVoiceID,
		modelID: defaultModelID,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.8,
			SimilarityBoost: 0.8,
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: marshal request")
	}

	reqURL := fmt.Sprintf("%s/v1/text-to-speech/%s/stream", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: send request")
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("elevenlabs: unexpected status %d: %s", resp.StatusCode, string(audio))
	}
	return audio, nil
}
