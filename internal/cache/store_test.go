package cache

import (
	"testing"

	"github.com/blackmichael/sea-timeline/internal/domain"
)

func entry(post domain.PostID, author domain.UserID) domain.PostEntry {
	return domain.PostEntry{
		Post:   domain.Post{ID: post, Author: author},
		Author: domain.User{ID: author, ScreenName: "u"},
	}
}

func TestStoreEntry(t *testing.T) {
	s := NewStore()
	if _, ok := s.Entry(1); ok {
		t.Fatalf("expected miss on empty store")
	}

	s.PutEntry(entry(1, 10))
	got, ok := s.Entry(1)
	if !ok {
		t.Fatalf("expected cached entry")
	}
	if got.Post.ID != 1 || got.Author.ID != 10 {
		t.Fatalf("unexpected entry: %+v", got)
	}
}

func TestStoreEntryMissesWithoutAuthor(t *testing.T) {
	s := NewStore()
	s.PutEntry(entry(1, 0))

	// Push the author out of the user cache.
	for i := 1; i <= UserCapacity; i++ {
		s.PutUser(domain.User{ID: domain.UserID(i)})
	}

	if _, ok := s.Post(1); !ok {
		t.Fatalf("expected the post itself to remain cached")
	}
	if _, ok := s.Entry(1); ok {
		t.Fatalf("expected a miss once the author is evicted")
	}
}

func TestStorePutList(t *testing.T) {
	s := NewStore()
	s.PutList(domain.PostList{
		Posts: []domain.Post{{ID: 1, Author: 10}, {ID: 2, Author: 10}, {ID: 3, Author: 11}},
		Users: []domain.User{{ID: 10}, {ID: 11}},
	})

	users, posts := s.Len()
	if users != 2 || posts != 3 {
		t.Fatalf("expected 2 users and 3 posts, got %d and %d", users, posts)
	}
	for _, id := range []domain.PostID{1, 2, 3} {
		if _, ok := s.Entry(id); !ok {
			t.Fatalf("expected entry %d", id)
		}
	}
	if _, ok := s.User(11); !ok {
		t.Fatalf("expected user 11")
	}
}
