package narrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.5-flash-preview-tts"
	defaultGeminiVoice   = "Charon"
)

// Gemini calls the generateContent REST endpoint with the AUDIO modality.
type Gemini struct {
	APIKey  string
	Model   string
	Voice   string
	BaseURL string
	Client  *http.Client
}

func NewGemini(cfg Settings) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key missing; provide tts.api_key or GEMINI_API_KEY")
	}
	g := &Gemini{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Voice:   cfg.Voice,
		BaseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		Client:  &http.Client{Timeout: 120 * time.Second},
	}
	if g.Model == "" {
		g.Model = defaultGeminiModel
	}
	if g.Voice == "" {
		g.Voice = defaultGeminiVoice
	}
	if g.BaseURL == "" {
		g.BaseURL = defaultGeminiBaseURL
	}
	if cfg.Timeout > 0 {
		g.Client.Timeout = cfg.Timeout
	}
	return g, nil
}

func (g *Gemini) requestBody(text string) ([]byte, error) {
	body := []byte(`{}`)
	var err error
	set := func(path string, value any) {
		if err != nil {
			return
		}
		body, err = sjson.SetBytes(body, path, value)
	}
	set("contents.0.parts.0.text", text)
	set("generationConfig.responseModalities", []string{"AUDIO"})
	set("generationConfig.speechConfig.voiceConfig.prebuiltVoiceConfig.voiceName", g.Voice)
	set("model", g.Model)
	return body, err
}

// Synthesize returns the inline audio data of the first candidate, still base64 encoded.
func (g *Gemini) Synthesize(ctx context.Context, text string) (string, error) {
	body, err := g.requestBody(text)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", g.BaseURL, g.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(data, "error.message").String()
		if msg == "" {
			msg = resp.Status
		}
		return "", fmt.Errorf("gemini tts: %d %s", resp.StatusCode, msg)
	}

	audio := gjson.GetBytes(data, "candidates.0.content.parts.0.inlineData.data").String()
	if audio == "" {
		return "", ErrNoAudio
	}
	return audio, nil
}
