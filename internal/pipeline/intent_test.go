package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/voxcart/voxcart/internal/model"
)

func TestExtractIntent_ItemList(t *testing.T) {
	t.Parallel()

	llm := &mockLLMClient{}
	llm.On("ChatCompletion", mock.Anything, mock.Anything).Return(completion(`["gaming mouse"]`), nil)

	intent, err := ExtractIntent(context.Background(), llm, "I need a gaming mouse")
	require.NoError(t, err)
	assert.Equal(t, []string{"gaming mouse"}, intent.Items)
	assert.False(t, intent.Unclear())
	_, isQuestion := intent.Question()
	assert.False(t, isQuestion)
}

func TestExtractIntent_SentinelBare(t *testing.T) {
	t.Parallel()

	llm := &mockLLMClient{}
	llm.On("ChatCompletion", mock.Anything, mock.Anything).Return(completion(model.NotUnderstoodSentinel), nil)

	intent, err := ExtractIntent(context.Background(), llm, "mumble mumble")
	require.NoError(t, err)
	assert.True(t, intent.Unclear())
}

func TestExtractIntent_SentinelArrayForm(t *testing.T) {
	t.Parallel()

	llm := &mockLLMClient{}
	llm.On("ChatCompletion", mock.Anything, mock.Anything).Return(completion(`["`+model.NotUnderstoodSentinel+`"]`), nil)

	intent, err := ExtractIntent(context.Background(), llm, "mumble mumble")
	require.NoError(t, err)
	assert.True(t, intent.Unclear())
}

func TestExtractIntent_ClarifyingQuestion(t *testing.T) {
	t.Parallel()

	llm := &mockLLMClient{}
	llm.On("ChatCompletion", mock.Anything, mock.Anything).Return(completion("Wired or wireless?"), nil)

	intent, err := ExtractIntent(context.Background(), llm, "I need a mouse")
	require.NoError(t, err)
	question, ok := intent.Question()
	assert.True(t, ok)
	assert.Equal(t, "Wired or wireless?", question)
	assert.False(t, intent.Unclear())
}

func TestExtractIntent_FencedReply(t *testing.T) {
	t.Parallel()

	llm := &mockLLMClient{}
	llm.On("ChatCompletion", mock.Anything, mock.Anything).Return(completion("```json\n[\"standing desk\"]\n```"), nil)

	intent, err := ExtractIntent(context.Background(), llm, "I want a standing desk")
	require.NoError(t, err)
	assert.Equal(t, []string{"standing desk"}, intent.Items)
}

func TestExtractIntent_UpstreamError(t *testing.T) {
	t.Parallel()

	llm := &mockLLMClient{}
	llm.On("ChatCompletion", mock.Anything, mock.Anything).Return(nil, eris.New("openai: unexpected status 500"))

	_, err := ExtractIntent(context.Background(), llm, "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion")
}

func TestExtractIntent_NonArrayJSONBecomesSingleton(t *testing.T) {
	t.Parallel()

	llm := &mockLLMClient{}
	llm.On("ChatCompletion", mock.Anything, mock.Anything).Return(completion(`{"items":["mouse"]}`), nil)

	intent, err := ExtractIntent(context.Background(), llm, "I need a mouse")
	require.NoError(t, err)
	require.Len(t, intent.Items, 1)
}
