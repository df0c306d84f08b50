package publisher

import (
	"html"
	"strings"

	"mystery_story_studio/generator"
)

// DocumentMediaType makes word processors sniff the HTML body as a document.
const DocumentMediaType = "application/msword"

const documentHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>%TITLE%</title>
<style>
body {
    font-family: 'Times New Roman', Times, serif;
    font-size: 12pt;
    line-height: 1.5;
}
h1 {
    font-size: 16pt;
    font-weight: bold;
    text-align: center;
    margin-bottom: 2em;
}
p {
    margin-bottom: 1em;
    text-align: justify;
}
</style>
</head>
<body>
<h1>%TITLE%</h1>
`

const documentTail = `</body>
</html>
`

// Paragraphs returns the non-blank lines of the story body. A trailing
// carriage return is dropped from each line.
func Paragraphs(fullText string) []string {
	var out []string
	for _, line := range strings.Split(generator.BodyOf(fullText), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// EncodeDocument renders the story body as an HTML document that word
// processors open as a .doc file. title is used as given; the first line of
// fullText is never repeated in the body.
func EncodeDocument(fullText, title string) []byte {
	var sb strings.Builder
	sb.WriteString(strings.ReplaceAll(documentHead, "%TITLE%", html.EscapeString(title)))
	for _, p := range Paragraphs(fullText) {
		sb.WriteString(`<p style="margin-bottom: 1em; text-align: justify;">`)
		sb.WriteString(html.EscapeString(p))
		sb.WriteString("</p>\n")
	}
	sb.WriteString(documentTail)
	return []byte(sb.String())
}
