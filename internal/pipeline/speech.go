package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/voxcart/voxcart/pkg/elevenlabs"
)

// Speak synthesizes spoken feedback for the user. Synthesis failures are
// logged and absorbed; audio is feedback, never a pipeline dependency.
func Speak(ctx context.Context, tts elevenlabs.Client, text string) []byte {
	if tts == nil || text == "" {
		return nil
	}
	audio, err := tts.Synthesize(ctx, text)
	if err != nil {
		zap.L().Warn("speech: synthesis failed", zap.String("text", text), zap.Error(err))
		return nil
	}
	return audio
}
