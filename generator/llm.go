package generator

import (
	"context"
	"iter"
	"time"
)

// LLMClient 抽象大模型客户端，便于替换/Mock。
type LLMClient interface {
	// Complete returns the whole answer in one response.
	Complete(ctx context.Context, prompt Prompt) (string, error)
	// Stream yields fragments in the order the provider delivers them.
	// A provider failure is yielded once as a terminal error.
	Stream(ctx context.Context, prompt Prompt) iter.Seq2[Fragment, error]
}

// Narrator turns text into base64 encoded PCM audio.
type Narrator interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// LLMSettings 提供给具体实现的基础配置。
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}
