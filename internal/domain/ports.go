package domain

// TextParser splits post text into typed spans. Implementations must be pure:
// the same text always yields the same nodes.
type TextParser func(text string) []TextNode

// EntryCache holds normalized users and posts keyed by id.
type EntryCache interface {
	// User returns the cached user and marks it most recently used.
	User(id UserID) (User, bool)

	// Entry returns a cached post together with its cached author. It reports
	// false unless both are present.
	Entry(id PostID) (PostEntry, bool)

	// PutUser stores or replaces a user.
	PutUser(user User)

	// PutEntry stores a post and its author together.
	PutEntry(entry PostEntry)

	// PutList stores every post and user of a timeline page together.
	PutList(list PostList)
}
