package render

import (
	"strings"

	"github.com/russross/blackfriday"
)

const (
	htmlFlags = blackfriday.HTML_USE_XHTML |
		blackfriday.HTML_SKIP_HTML |
		blackfriday.HTML_SKIP_STYLE |
		blackfriday.HTML_SAFELINK |
		blackfriday.HTML_NOFOLLOW_LINKS |
		blackfriday.HTML_HREF_TARGET_BLANK

	extensions = blackfriday.EXTENSION_NO_INTRA_EMPHASIS |
		blackfriday.EXTENSION_FENCED_CODE |
		blackfriday.EXTENSION_AUTOLINK |
		blackfriday.EXTENSION_STRIKETHROUGH |
		blackfriday.EXTENSION_HARD_LINE_BREAK
)

// HTML renders markdown message text for web clients. Raw HTML in the input is dropped.
func HTML(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	renderer := blackfriday.HtmlRenderer(htmlFlags, "", "")
	return strings.TrimSpace(string(blackfriday.Markdown([]byte(text), renderer, extensions)))
}
