package generator

import "strings"

// DefaultTitle is used when a story has no title line.
const DefaultTitle = "Cuento de Misterio"

// SplitTitle separates the first line of text from the rest.
// Without a newline the title is empty and body is text unchanged.
func SplitTitle(text string) (title, body string) {
	title, body, found := strings.Cut(text, "\n")
	if !found {
		return "", text
	}
	return title, body
}

// TitleOf returns the trimmed first line of a story, or DefaultTitle.
func TitleOf(text string) string {
	title, _ := SplitTitle(text)
	if title = strings.TrimSpace(title); title == "" {
		return DefaultTitle
	}
	return title
}

// BodyOf returns the story without its title line.
func BodyOf(text string) string {
	_, body := SplitTitle(text)
	return body
}
