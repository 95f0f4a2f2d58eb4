// Package render prints posts for a terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/blackmichael/sea-timeline/internal/domain"
)

var (
	nameStyle    = color.New(color.Bold)
	captionStyle = color.New(color.FgHiBlack)
	mentionStyle = color.New(color.Bold)
	linkStyle    = color.New(color.FgCyan, color.Underline)
	emojiStyle   = color.New(color.FgYellow)
	badgeStyle   = color.New(color.FgBlack, color.BgHiYellow)
)

// Renderer writes posts as text.
type Renderer struct {
	// Now is used for relative timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Post writes entry using a default Renderer.
func Post(w io.Writer, entry domain.PostEntry) error {
	return Renderer{}.Post(w, entry)
}

// Post writes the author line, the post body, attached files and the footer.
func (r Renderer) Post(w io.Writer, entry domain.PostEntry) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	var b strings.Builder
	post, author := entry.Post, entry.Author

	b.WriteString(nameStyle.Sprint(author.DisplayName()))
	b.WriteString(" ")
	b.WriteString(captionStyle.Sprintf("@%s · %s", author.ScreenName, Relative(now(), post.CreatedAt)))
	b.WriteString("\n")

	b.WriteString(Text(post.TextNodes))
	b.WriteString("\n")

	for _, f := range post.Files {
		if line, ok := fileLine(f); ok {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString(captionStyle.Sprintf("  via %s", post.Via.Name))
	if post.Via.IsBot {
		b.WriteString(" ")
		b.WriteString(badgeStyle.Sprint("Bot"))
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Text renders parsed post text with mentions, links and emoji names
// highlighted.
func Text(nodes []domain.TextNode) string {
	var b strings.Builder
	for _, n := range nodes {
		switch n.Kind {
		case domain.NodeLink:
			b.WriteString(linkStyle.Sprint(n.Value))
		case domain.NodeMention:
			b.WriteString(mentionStyle.Sprint(n.Raw))
		case domain.NodeEmojiName:
			b.WriteString(emojiStyle.Sprint(n.Raw))
		default:
			b.WriteString(n.Raw)
		}
	}
	return b.String()
}

func fileLine(f domain.File) (string, bool) {
	if len(f.Variants) == 0 {
		return captionStyle.Sprintf("[%s] (no preview)", f.Name), true
	}
	switch f.Type {
	case domain.FileTypeImage, domain.FileTypeVideo:
	default:
		return "", false
	}

	best, _ := f.BestVariant()
	line := fmt.Sprintf("[%s] %s %s", f.Type, f.Name, linkStyle.Sprint(best.URL))
	if thumb := f.ThumbnailVariants()[0]; thumb.URL != best.URL {
		line += captionStyle.Sprintf(" (thumbnail %s)", thumb.URL)
	}
	return line, true
}

// Relative formats t relative to now: "now", "42s", "5m", "3h", "6d", and
// the calendar date beyond a week.
func Relative(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	default:
		return t.Local().Format("2006-01-02")
	}
}
