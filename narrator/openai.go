package narrator

import (
	"context"
	"encoding/base64"
	"errors"
	"io"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI uses the speech endpoint with the raw "pcm" format, which is
// already 24 kHz 16-bit little endian mono.
type OpenAI struct {
	Model string
	Voice string
	Opts  []option.RequestOption
}

func NewOpenAI(cfg Settings) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing; provide tts.api_key or OPENAI_API_KEY")
	}
	o := &OpenAI{Model: cfg.Model, Voice: cfg.Voice}
	if o.Model == "" {
		o.Model = "gpt-4o-mini-tts"
	}
	if o.Voice == "" {
		o.Voice = "onyx"
	}
	o.Opts = []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		o.Opts = append(o.Opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		o.Opts = append(o.Opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return o, nil
}

func (o *OpenAI) Synthesize(ctx context.Context, text string) (string, error) {
	client := openai.NewClient(o.Opts...)
	resp, err := client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(o.Model),
		Voice:          openai.AudioSpeechNewParamsVoice(o.Voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if len(pcm) == 0 {
		return "", ErrNoAudio
	}
	return base64.StdEncoding.EncodeToString(pcm), nil
}
