package generator

import (
	"context"
	"errors"
	"iter"
)

// Agent 负责根据灵感生成或根据修订要求重写故事。
type Agent struct {
	llm LLMClient
}

func NewAgent(llm LLMClient) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	return &Agent{llm: llm}, nil
}

// Idea asks for a single premise.
func (a *Agent) Idea(ctx context.Context) (string, error) {
	raw, err := a.llm.Complete(ctx, BuildIdeaPrompt())
	if err != nil {
		return "", err
	}
	return PostProcessIdea(raw)
}

// Story streams a new story for premise.
func (a *Agent) Story(ctx context.Context, premise string) iter.Seq2[Fragment, error] {
	return a.llm.Stream(ctx, BuildStoryPrompt(premise))
}

// Revise streams story rewritten according to instruction.
func (a *Agent) Revise(ctx context.Context, story, instruction string) iter.Seq2[Fragment, error] {
	return a.llm.Stream(ctx, BuildRevisionPrompt(story, instruction))
}
