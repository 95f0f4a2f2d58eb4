package domain

import "time"

// UserID identifies a user on the Sea server.
type UserID int64

// User is a Sea account. Later fetches overwrite earlier cached values.
type User struct {
	ID         UserID
	Name       string
	ScreenName string
	PostsCount int64
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// AvatarFile is nil when the user has no avatar.
	AvatarFile *File
}

// DisplayName returns the user's name, falling back to the screen name.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.ScreenName
}
