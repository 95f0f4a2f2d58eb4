package cache

import (
	"sync"

	"github.com/samber/lo"

	"github.com/blackmichael/sea-timeline/internal/domain"
)

// Store implements domain.EntryCache with a user LRU and a post LRU. Posts and
// their authors are written under one lock so a reader never observes a post
// whose author was not stored with it.
type Store struct {
	mu    sync.Mutex
	users *LRU[domain.UserID, domain.User]
	posts *LRU[domain.PostID, domain.Post]
}

var _ domain.EntryCache = (*Store)(nil)

// NewStore creates a Store with UserCapacity and PostCapacity.
func NewStore() *Store {
	users, err := NewLRU[domain.UserID, domain.User](UserCapacity)
	if err != nil {
		panic(err)
	}
	posts, err := NewLRU[domain.PostID, domain.Post](PostCapacity)
	if err != nil {
		panic(err)
	}
	return &Store{users: users, posts: posts}
}

// User returns a cached user.
func (s *Store) User(id domain.UserID) (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users.Get(id)
}

// Post returns a cached post without its author.
func (s *Store) Post(id domain.PostID) (domain.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts.Get(id)
}

// Entry returns a cached post with its author. A post whose author has been
// evicted counts as a miss.
func (s *Store) Entry(id domain.PostID) (domain.PostEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts.Get(id)
	if !ok {
		return domain.PostEntry{}, false
	}
	author, ok := s.users.Get(post.Author)
	if !ok {
		return domain.PostEntry{}, false
	}
	return domain.PostEntry{Post: post, Author: author}, true
}

// PutUser stores a user.
func (s *Store) PutUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users.Set(user.ID, user)
}

// PutEntry stores a post and its author.
func (s *Store) PutEntry(entry domain.PostEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users.Set(entry.Author.ID, entry.Author)
	s.posts.Set(entry.Post.ID, entry.Post)
}

// PutList stores every post and user of a timeline page.
func (s *Store) PutList(list domain.PostList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lo.ForEach(list.Posts, func(post domain.Post, _ int) {
		s.posts.Set(post.ID, post)
	})
	lo.ForEach(list.Users, func(user domain.User, _ int) {
		s.users.Set(user.ID, user)
	})
}

// Len returns the number of cached users and posts.
func (s *Store) Len() (users, posts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users.Len(), s.posts.Len()
}
