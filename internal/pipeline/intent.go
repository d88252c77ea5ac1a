package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/voxcart/voxcart/internal/model"
	"github.com/voxcart/voxcart/pkg/openai"
)

const intentSystemPrompt = `You are a shopping assistant. The user will describe what they want to buy in free text. Extract the items they want as a JSON array of short item descriptors, e.g. ["wireless earbuds", "phone case"]. Respond with ONLY the JSON array and nothing else. If the request is ambiguous, respond with exactly one short clarifying question ending in "?". If you cannot understand the request at all, respond with exactly: ` + model.NotUnderstoodSentinel

// ExtractIntent turns a transcribed utterance into a shopping intent via one
// LLM call. The model's raw reply is parsed tolerantly: non-JSON text is
// wrapped as a single-element list so the sentinel and clarifying-question
// replies survive as intents rather than parse errors.
func ExtractIntent(ctx context.Context, llm openai.Client, utterance string) (model.Intent, error) {
	resp, err := llm.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Messages: []openai.Message{
			{Role: "system", Content: intentSystemPrompt},
			{Role: "user", Content: utterance},
		},
	})
	if err != nil {
		return model.Intent{}, eris.Wrap(err, "intent: chat completion")
	}

	parsed := ParseItemList(resp.Text())
	switch parsed.Kind {
	case ParsedList, ParsedFallback:
		intent := model.Intent{Items: parsed.Items}
		zap.L().Debug("intent: extracted",
			zap.Strings("items", intent.Items),
			zap.Bool("fallback", parsed.Kind == ParsedFallback),
		)
		return intent, nil
	default:
		// Valid JSON of the wrong shape; treat the raw text as a singleton
		// the same way non-JSON prose is treated.
		zap.L().Warn("intent: model returned non-array JSON", zap.String("raw", parsed.Raw))
		return model.Intent{Items: []string{parsed.Raw}}, nil
	}
}
