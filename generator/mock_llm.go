package generator

import (
	"context"
	"iter"
	"strings"
)

// MockLLM 一个简单的占位实现，便于本地调试，不调用外部模型。
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	if prompt.System == "" {
		return "Un relojero descubre que cada reloj que repara adelanta la hora exacta de la muerte de su dueño.", nil
	}
	return m.story(prompt), nil
}

func (m MockLLM) Stream(ctx context.Context, prompt Prompt) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		for _, word := range strings.SplitAfter(m.story(prompt), " ") {
			if err := ctx.Err(); err != nil {
				yield(Fragment{}, err)
				return
			}
			if !yield(Fragment{Text: word}, nil) {
				return
			}
		}
	}
}

// 很简单地把用户输入拼接成一个带标题的短篇。
func (m MockLLM) story(prompt Prompt) string {
	var sb strings.Builder
	sb.WriteString("El último turno\n")
	sb.WriteString("Arturo López llegó a la estación cuando el reloj marcaba las doce.\n\n")
	sb.WriteString("—Nadie sale de aquí —le dijo el jefe de estación, sin levantar la vista.\n\n")
	sb.WriteString("Lo que se pidió: ")
	sb.WriteString(strings.Join(strings.Fields(prompt.User), " "))
	sb.WriteString("\n")
	return sb.String()
}
