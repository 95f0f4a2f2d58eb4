package sea

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/blackmichael/sea-timeline/internal/domain"
	"github.com/blackmichael/sea-timeline/internal/normalize"
	"github.com/blackmichael/sea-timeline/internal/stream"
)

// PublicTimelineStream is the stream name sent in the handshake of
// ConnectPublicTimeline.
const PublicTimelineStream = "v1/timelines/public"

// TimelineQuery filters and pages the public timeline. Zero fields are not
// sent.
type TimelineQuery struct {
	// Count limits the number of posts returned.
	Count int

	// Since only returns posts newer than this id.
	Since domain.PostID

	// After only returns posts older than this id.
	After domain.PostID

	// Search filters posts by text.
	Search string
}

func (q TimelineQuery) values() url.Values {
	v := url.Values{}
	if q.Count != 0 {
		v.Set("count", strconv.Itoa(q.Count))
	}
	if q.Since != 0 {
		v.Set("sinceId", strconv.FormatInt(int64(q.Since), 10))
	}
	if q.After != 0 {
		v.Set("maxId", strconv.FormatInt(int64(q.After), 10))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

// NewPost is the body of a post submission.
type NewPost struct {
	Text        string          `json:"text"`
	FileIDs     []domain.FileID `json:"fileIds,omitempty"`
	InReplyToID *domain.PostID  `json:"inReplyToId,omitempty"`
}

// FetchAccount returns the authenticated user.
func (c *Client) FetchAccount(ctx context.Context) (domain.User, error) {
	ctx, span := tracer.Start(ctx, "sea.fetch_account")
	defer span.End()

	raw, err := c.get(ctx, "v1/account", nil)
	if err != nil {
		return domain.User{}, fail(span, fmt.Errorf("fetch account: %w", err))
	}
	user, err := normalize.ToUser(raw, normalize.Root)
	if err != nil {
		return domain.User{}, fail(span, fmt.Errorf("normalize account: %w", err))
	}

	c.cache.PutUser(user)
	span.SetAttributes(attribute.Int64("user_id", int64(user.ID)))
	return user, nil
}

// FetchPublicTimeline returns a page of the public timeline. Every post and
// user of the page is cached.
func (c *Client) FetchPublicTimeline(ctx context.Context, q TimelineQuery) (domain.PostList, error) {
	ctx, span := tracer.Start(ctx, "sea.fetch_public_timeline",
		trace.WithAttributes(
			attribute.Int("count", q.Count),
			attribute.Int64("since_id", int64(q.Since)),
			attribute.Int64("max_id", int64(q.After)),
		),
	)
	defer span.End()

	raw, err := c.get(ctx, "v1/timelines/public", q.values())
	if err != nil {
		return domain.PostList{}, fail(span, fmt.Errorf("fetch public timeline: %w", err))
	}
	list, err := c.normalizer.ToPostList(raw, normalize.Root)
	if err != nil {
		return domain.PostList{}, fail(span, fmt.Errorf("normalize public timeline: %w", err))
	}

	c.cache.PutList(list)
	c.logger.Debug("fetched public timeline", "posts", len(list.Posts), "users", len(list.Users))
	span.SetAttributes(attribute.Int("posts_returned", len(list.Posts)))
	return list, nil
}

// FetchPost returns a post and its author. Cached pairs are returned without
// a request. found is false, with a nil error, when the server reports that
// the post does not exist.
func (c *Client) FetchPost(ctx context.Context, id domain.PostID) (entry domain.PostEntry, found bool, err error) {
	ctx, span := tracer.Start(ctx, "sea.fetch_post",
		trace.WithAttributes(attribute.Int64("post_id", int64(id))),
	)
	defer span.End()

	if entry, ok := c.cache.Entry(id); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return entry, true, nil
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	raw, err := c.get(ctx, "v1/posts/"+strconv.FormatInt(int64(id), 10), nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			span.SetAttributes(attribute.Bool("not_found", true))
			return domain.PostEntry{}, false, nil
		}
		return domain.PostEntry{}, false, fail(span, fmt.Errorf("fetch post %d: %w", id, err))
	}
	entry, err = c.normalizer.ToPost(raw, normalize.Root)
	if err != nil {
		return domain.PostEntry{}, false, fail(span, fmt.Errorf("normalize post %d: %w", id, err))
	}

	c.cache.PutEntry(entry)
	return entry, true, nil
}

// Post submits a new post and returns the server's version of it.
func (c *Client) Post(ctx context.Context, p NewPost) (domain.PostEntry, error) {
	ctx, span := tracer.Start(ctx, "sea.post",
		trace.WithAttributes(attribute.Int("file_count", len(p.FileIDs))),
	)
	defer span.End()

	raw, err := c.post(ctx, "v1/posts", p)
	if err != nil {
		return domain.PostEntry{}, fail(span, fmt.Errorf("create post: %w", err))
	}
	entry, err := c.normalizer.ToPost(raw, normalize.Root)
	if err != nil {
		return domain.PostEntry{}, fail(span, fmt.Errorf("normalize created post: %w", err))
	}

	c.cache.PutEntry(entry)
	span.SetAttributes(attribute.Int64("post_id", int64(entry.Post.ID)))
	return entry, nil
}

// ConnectPublicTimeline opens a realtime connection to the public timeline.
// Posts received on it are cached before subscribers see them. The
// connection is not re-established once it closes.
func (c *Client) ConnectPublicTimeline(ctx context.Context) (*stream.Conn, error) {
	if c.streamURL == "" {
		return nil, errors.New("stream URL is not configured")
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}

	return stream.Dial(ctx, stream.Config{
		URL:               c.streamURL,
		Stream:            PublicTimelineStream,
		Token:             tok.AccessToken,
		KeepaliveInterval: c.keepalive,
		Dialer:            c.dialer,
		Logger:            c.logger,
	}, c.decodeStreamPost)
}

func (c *Client) decodeStreamPost(content any) (domain.PostEntry, error) {
	entry, err := c.normalizer.ToPost(content, normalize.Root)
	if err != nil {
		return domain.PostEntry{}, err
	}
	c.cache.PutEntry(entry)
	return entry, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
