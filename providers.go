package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"mystery_story_studio/generator"
	"mystery_story_studio/narrator"
	"mystery_story_studio/publisher"
)

var defaultModels = map[string]string{
	"gemini":   "gemini-2.5-flash",
	"openai":   "gpt-4o-mini",
	"deepseek": "deepseek-chat",
}

type studio struct {
	agent    *generator.Agent
	narrator generator.Narrator
	pub      *publisher.Publisher
}

func buildStudio(ctx context.Context, cfg publisher.Config, logger *log.Logger) (*studio, error) {
	llm, err := buildLLM(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	agent, err := generator.NewAgent(llm)
	if err != nil {
		return nil, err
	}
	pub, err := publisher.NewFromConfig(cfg.Export, logger)
	if err != nil {
		return nil, err
	}
	st := &studio{agent: agent, pub: pub}

	// 语音不是必需的：缺少配置时仍可写作，只是无法导出 wav。
	narr, err := buildNarrator(cfg.TTS)
	if err != nil {
		logger.Warn("audio export disabled", "err", err)
	} else {
		st.narrator = narr
	}
	return st, nil
}

func buildLLM(ctx context.Context, cfg publisher.LLMConfig) (generator.LLMClient, error) {
	settings := &generator.LLMSettings{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Timeout:  cfg.Timeout,
	}
	if settings.Model == "" {
		settings.Model = defaultModels[cfg.Provider]
	}
	switch cfg.Provider {
	case "gemini":
		return generator.NewGeminiLLMFromConfig(ctx, settings)
	case "openai":
		return generator.NewOpenAILLMFromConfig(settings)
	case "deepseek":
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url（例如官方/网关地址）。
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(settings)
	case "mock":
		return generator.MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.Provider)
	}
}

func buildNarrator(cfg publisher.TTSConfig) (generator.Narrator, error) {
	settings := narrator.Settings{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		Voice:    cfg.Voice,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Timeout:  cfg.Timeout,
	}
	switch cfg.Provider {
	case "gemini":
		g, err := narrator.NewGemini(settings)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "openai":
		o, err := narrator.NewOpenAI(settings)
		if err != nil {
			return nil, err
		}
		return o, nil
	case "mock":
		return narrator.Mock{}, nil
	default:
		return nil, fmt.Errorf("tts provider %s not supported", cfg.Provider)
	}
}
