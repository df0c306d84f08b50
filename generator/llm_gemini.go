package generator

import (
	"context"
	"errors"
	"iter"

	"google.golang.org/genai"
)

// GeminiLLM implements LLMClient using the Google Gen AI SDK.
type GeminiLLM struct {
	Client *genai.Client
	// Model should not start with "models/"
	Model string
}

func NewGeminiLLMFromConfig(ctx context.Context, cfg *LLMSettings) (*GeminiLLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key missing; provide llm.api_key or GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		cc.HTTPOptions.Timeout = &timeout
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &GeminiLLM{Client: client, Model: cfg.Model}, nil
}

func (g *GeminiLLM) config(prompt Prompt) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if prompt.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	if prompt.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*prompt.Temperature))
	}
	if prompt.TopP != nil {
		cfg.TopP = genai.Ptr(float32(*prompt.TopP))
	}
	return cfg
}

func (g *GeminiLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	resp, err := g.Client.Models.GenerateContent(ctx, g.Model, genai.Text(prompt.User), g.config(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("gemini: no candidates")
	}
	return resp.Text(), nil
}

func (g *GeminiLLM) Stream(ctx context.Context, prompt Prompt) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		for chunk, err := range g.Client.Models.GenerateContentStream(ctx, g.Model, genai.Text(prompt.User), g.config(prompt)) {
			if err != nil {
				yield(Fragment{}, err)
				return
			}
			text := chunk.Text()
			if text == "" {
				continue
			}
			if !yield(Fragment{Text: text}, nil) {
				return
			}
		}
	}
}
