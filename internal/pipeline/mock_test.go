package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/voxcart/voxcart/pkg/coingecko"
	"github.com/voxcart/voxcart/pkg/elevenlabs"
	"github.com/voxcart/voxcart/pkg/exa"
	"github.com/voxcart/voxcart/pkg/openai"
	"github.com/voxcart/voxcart/pkg/rye"
)

// --- OpenAI Mock ---

type mockLLMClient struct {
	mock.Mock
}

func (m *mockLLMClient) ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openai.ChatCompletionResponse), args.Error(1)
}

// completion wraps text in the chat-completion response shape.
func completion(text string) *openai.ChatCompletionResponse {
	return &openai.ChatCompletionResponse{
		Choices: []openai.Choice{{Message: openai.Message{Role: "assistant", Content: text}}},
	}
}

// --- Exa Mock ---

type mockSearchClient struct {
	mock.Mock
}

func (m *mockSearchClient) Search(ctx context.Context, query string, opts ...exa.SearchOption) (*exa.SearchResponse, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*exa.SearchResponse), args.Error(1)
}

// --- Rye Mock ---

type mockMarketClient struct {
	mock.Mock
}

func (m *mockMarketClient) ProductByID(ctx context.Context, id string) (*rye.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rye.Product), args.Error(1)
}

func (m *mockMarketClient) CreateCart(ctx context.Context, productID string, buyer rye.BuyerIdentity) (*rye.Cart, error) {
	args := m.Called(ctx, productID, buyer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rye.Cart), args.Error(1)
}

// --- CoinGecko Mock ---

type mockOracleClient struct {
	mock.Mock
}

func (m *mockOracleClient) SimplePrice(ctx context.Context, asset, vs string) (float64, error) {
	args := m.Called(ctx, asset, vs)
	return args.Get(0).(float64), args.Error(1)
}

// --- ElevenLabs Mock ---

type mockTTSClient struct {
	mock.Mock
}

func (m *mockTTSClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

var (
	_ openai.Client     = (*mockLLMClient)(nil)
	_ exa.Client        = (*mockSearchClient)(nil)
	_ rye.Client        = (*mockMarketClient)(nil)
	_ coingecko.Client  = (*mockOracleClient)(nil)
	_ elevenlabs.Client = (*mockTTSClient)(nil)
)
