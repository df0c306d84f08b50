package narrator

import (
	"context"
	"encoding/base64"
	"unicode/utf8"
)

// Mock produces silence, 10ms per character, without calling any provider.
type Mock struct{}

func (Mock) Synthesize(_ context.Context, text string) (string, error) {
	samples := utf8.RuneCountInString(text) * SampleRate / 100
	if samples == 0 {
		return "", ErrNoAudio
	}
	return base64.StdEncoding.EncodeToString(make([]byte, samples*2)), nil
}
