package generator

import (
	"errors"
	"strings"
)

// PostProcessIdea 校验并清理模型返回的灵感。
func PostProcessIdea(raw string) (string, error) {
	idea := strings.TrimSpace(raw)
	idea = strings.Trim(idea, `"“”«»`)
	idea = strings.TrimSpace(idea)
	if idea == "" {
		return "", errors.New("model returned an empty idea")
	}
	return idea, nil
}
