package domain

import "time"

// PostID identifies a post on the Sea server.
type PostID int64

// Post represents a single timeline entry as normalized from the Sea API.
type Post struct {
	ID PostID

	// Text is the raw post body.
	Text string

	// TextNodes is the parsed form of Text. It is produced once, when the post
	// is normalized, and never re-derived.
	TextNodes []TextNode

	// Author references the posting user by id. The user itself lives in the
	// user cache.
	Author UserID

	CreatedAt time.Time
	UpdatedAt time.Time

	// Files are the attachments of the post, in server order.
	Files []File

	// Via describes the application the post was made with.
	Via Via
}

// Via is the provenance of a post.
type Via struct {
	// Name is the application name.
	Name string

	// IsBot is set when the application declared itself automated.
	IsBot bool
}

// PostEntry is a post together with its resolved author.
type PostEntry struct {
	Post   Post
	Author User
}

// PostList is a normalized timeline page. Users holds every author referenced
// by Posts, once per id.
type PostList struct {
	Posts []Post
	Users []User
}
