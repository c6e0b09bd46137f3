package format

import (
	"strings"

	"golang.org/x/net/html"
)

// DescriptionLength is the default cut-off for TruncateDescription.
const DescriptionLength = 320

// TruncateDescription strips markup from an HTML description and cuts the
// text to maxLen runes, appending an ellipsis when cut. maxLen <= 0 means
// DescriptionLength.
func TruncateDescription(raw string, maxLen int) string {
	if raw == "" {
		return ""
	}
	if maxLen <= 0 {
		maxLen = DescriptionLength
	}
	text := htmlText(raw)
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "…"
}

// htmlText concatenates the text nodes of an HTML fragment, skipping script
// and style content. Entities are decoded.
func htmlText(raw string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(raw))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF ends a well-formed fragment; anything else keeps what was read.
			return b.String()
		case html.StartTagToken:
			if name, _ := z.TagName(); isHidden(string(name)) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isHidden(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isHidden(tag string) bool {
	return tag == "script" || tag == "style"
}
