// Package narrator turns story text into base64 encoded 16-bit mono PCM
// sampled at 24000 Hz, the payload expected by publisher.EncodeAudio.
package narrator

import (
	"errors"
	"time"
)

// ErrNoAudio is returned when a provider answers without an audio payload.
var ErrNoAudio = errors.New("no audio data in response")

// SampleRate of every payload produced by this package.
const SampleRate = 24000

// Settings configures a speech provider.
type Settings struct {
	Provider string
	Model    string
	Voice    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}
