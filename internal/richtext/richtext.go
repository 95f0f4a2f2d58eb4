// Package richtext splits Sea post text into links, mentions, emoji names and
// plain runs.
package richtext

import (
	"regexp"
	"strings"

	"github.com/blackmichael/sea-timeline/internal/domain"
)

var pattern = regexp.MustCompile(
	`(?P<link>https?://[^\s<>"]+)|(?P<mention>@[A-Za-z0-9_]+)|(?P<emoji>:[A-Za-z0-9_+\-]+:)`,
)

var (
	linkGroup    = pattern.SubexpIndex("link")
	mentionGroup = pattern.SubexpIndex("mention")
	emojiGroup   = pattern.SubexpIndex("emoji")
)

// Parse returns the nodes of text in order. Joining the Raw field of every
// node reproduces text.
func Parse(text string) []domain.TextNode {
	var (
		nodes []domain.TextNode
		plain strings.Builder
		pos   int
	)

	flush := func() {
		if plain.Len() == 0 {
			return
		}
		s := plain.String()
		nodes = append(nodes, domain.TextNode{Kind: domain.NodeText, Raw: s, Value: s})
		plain.Reset()
	}

	for _, m := range pattern.FindAllStringSubmatchIndex(text, -1) {
		start := m[0]
		node, end, ok := classify(text, m)
		if !ok {
			continue
		}
		plain.WriteString(text[pos:start])
		flush()
		nodes = append(nodes, node)
		pos = end
	}
	plain.WriteString(text[pos:])
	flush()

	return nodes
}

// trailing is punctuation that ends a sentence rather than a URL.
const trailing = ".,;:!?)"

func classify(text string, m []int) (domain.TextNode, int, bool) {
	start, end := m[0], m[1]
	raw := text[start:end]
	switch {
	case m[2*linkGroup] >= 0:
		raw = strings.TrimRight(raw, trailing)
		if strings.HasSuffix(raw, "//") {
			return domain.TextNode{}, 0, false
		}
		return domain.TextNode{Kind: domain.NodeLink, Raw: raw, Value: raw}, start + len(raw), true
	case m[2*mentionGroup] >= 0:
		// "foo@bar" is an address, not a mention.
		if precededByWord(text, start) {
			return domain.TextNode{}, 0, false
		}
		return domain.TextNode{Kind: domain.NodeMention, Raw: raw, Value: raw[1:]}, end, true
	case m[2*emojiGroup] >= 0:
		// "12:30:45" is a time, not an emoji.
		if precededByWord(text, start) {
			return domain.TextNode{}, 0, false
		}
		return domain.TextNode{Kind: domain.NodeEmojiName, Raw: raw, Value: raw[1 : len(raw)-1]}, end, true
	}
	return domain.TextNode{}, 0, false
}

func precededByWord(text string, i int) bool {
	return i > 0 && isWordByte(text[i-1])
}

func isWordByte(b byte) bool {
	return b == '_' ||
		('0' <= b && b <= '9') ||
		('a' <= b && b <= 'z') ||
		('A' <= b && b <= 'Z')
}
