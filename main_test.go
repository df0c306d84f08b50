package main

import (
	"bytes"
	"context"
	"testing"

	"mystery_story_studio/generator"
	"mystery_story_studio/narrator"
	"mystery_story_studio/publisher"
)

func TestStreamPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := &streamPrinter{w: &buf}

	steps := []generator.Snapshot{
		{Phase: generator.PhaseGeneratingStory, Story: ""},
		{Phase: generator.PhaseGeneratingStory, Story: "Título\n"},
		{Phase: generator.PhaseGeneratingStory, Story: "Título\nUno "},
		{Phase: generator.PhaseIdle, Story: "Título\nUno "},
		{Phase: generator.PhaseRevising, Story: ""},
		{Phase: generator.PhaseRevising, Story: "Otro\n"},
	}
	for _, s := range steps {
		p.update(s)
	}
	if got, want := buf.String(), "Título\nUno \nOtro\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestBuildLLM(t *testing.T) {
	tests := []struct {
		name    string
		cfg     publisher.LLMConfig
		wantErr bool
	}{
		{"mock", publisher.LLMConfig{Provider: "mock"}, false},
		{"openai", publisher.LLMConfig{Provider: "openai", APIKey: "sk-test"}, false},
		{"openai without key", publisher.LLMConfig{Provider: "openai"}, true},
		{"deepseek without base url", publisher.LLMConfig{Provider: "deepseek", APIKey: "k"}, true},
		{"deepseek", publisher.LLMConfig{Provider: "deepseek", APIKey: "k", BaseURL: "https://api.deepseek.com"}, false},
		{"unknown", publisher.LLMConfig{Provider: "nope"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm, err := buildLLM(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && llm == nil {
				t.Fatalf("nil client")
			}
		})
	}
}

func TestBuildLLM_DefaultModel(t *testing.T) {
	llm, err := buildLLM(context.Background(), publisher.LLMConfig{Provider: "openai", APIKey: "sk-test"})
	if err != nil {
		t.Fatal(err)
	}
	if m := llm.(*generator.OpenAILLM).Model; m != "gpt-4o-mini" {
		t.Errorf("model = %q", m)
	}
}

func TestBuildNarrator(t *testing.T) {
	n, err := buildNarrator(publisher.TTSConfig{Provider: "mock"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := n.(narrator.Mock); !ok {
		t.Errorf("narrator = %T", n)
	}
	if _, err := buildNarrator(publisher.TTSConfig{Provider: "gemini"}); err == nil {
		t.Errorf("expected missing key error")
	}
	if _, err := buildNarrator(publisher.TTSConfig{Provider: "espeak"}); err == nil {
		t.Errorf("expected unsupported provider error")
	}
}
