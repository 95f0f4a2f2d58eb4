package domain

// NodeKind classifies a span of post text.
type NodeKind string

const (
	NodeText      NodeKind = "Text"
	NodeLink      NodeKind = "Link"
	NodeMention   NodeKind = "Mention"
	NodeEmojiName NodeKind = "EmojiName"
)

// TextNode is one span of parsed post text.
type TextNode struct {
	Kind NodeKind

	// Raw is the span exactly as it appears in the post text.
	Raw string

	// Value is the meaningful part of the span: the URL of a link, the screen
	// name of a mention or the name of an emoji. It equals Raw for plain text.
	Value string
}
