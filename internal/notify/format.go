package notify

import (
	"html"
	"strings"

	"github.com/Rierra/fblstner/internal/extractor"
	"github.com/Rierra/fblstner/internal/urlutil"
)

// excerptMaxRunes caps the post text quoted in an alert message.
const excerptMaxRunes = 800

// FormatAlert renders a post as a Telegram HTML message.
func FormatAlert(post extractor.Post) string {
	var b strings.Builder

	b.WriteString("\U0001F514 <b>KEYWORD ALERT: ")
	b.WriteString(html.EscapeString(strings.ToUpper(post.Keyword)))
	b.WriteString("</b>\n\n")

	b.WriteString(html.EscapeString(excerpt(post.Text)))
	b.WriteString("\n")

	if post.Author != "" {
		b.WriteString("\n\U0001F464 ")
		b.WriteString(html.EscapeString(post.Author))
	}
	if post.Timestamp != "" {
		b.WriteString("\n\U0001F552 ")
		b.WriteString(html.EscapeString(post.Timestamp))
	}
	if post.PostURL != "" {
		b.WriteString("\n\U0001F517 <a href=\"")
		b.WriteString(html.EscapeString(urlutil.NormalizeURL(post.PostURL)))
		b.WriteString("\">View Post</a>")
	}
	return b.String()
}

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptMaxRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:excerptMaxRunes])) + "…"
}
