package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/samber/lo"
	"golang.org/x/oauth2"

	"github.com/blackmichael/sea-timeline/internal/config"
	"github.com/blackmichael/sea-timeline/internal/domain"
	"github.com/blackmichael/sea-timeline/internal/httpserver"
	"github.com/blackmichael/sea-timeline/internal/oauth"
	"github.com/blackmichael/sea-timeline/internal/render"
	"github.com/blackmichael/sea-timeline/internal/sea"
	"github.com/blackmichael/sea-timeline/internal/tracing"
)

const usage = `usage: sea <command> [flags]

commands:
  account     show the authenticated user
  timeline    list the public timeline
  get         show one post
  post        create a post
  login       print the OAuth authorize URL (-wait receives the redirect)
  callback    exchange an authorization code for a token
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("command is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	ctx := context.Background()
	shutdown, err := tracing.InitTracer(ctx, cfg.ServiceName, cfg.TracingEndpoint, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return login(ctx, cfg, rest, logger, out)
	case "callback":
		return callback(ctx, cfg, rest, logger, out)
	}

	if err := cfg.RequireSeaURL(); err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return err
	}
	client, err := sea.NewClient(sea.Options{
		BaseURL:   cfg.SeaURL,
		StreamURL: cfg.WebsocketURL,
		Token:     cfg.Token,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	switch cmd {
	case "account":
		return account(ctx, client, out)
	case "timeline":
		return timeline(ctx, client, rest, out)
	case "get":
		return get(ctx, client, rest, out)
	case "post":
		return post(ctx, client, rest, out)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func account(ctx context.Context, client *sea.Client, out io.Writer) error {
	user, err := client.FetchAccount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (@%s)\n", user.DisplayName(), user.ScreenName)
	fmt.Fprintf(out, "id:     %d\n", user.ID)
	fmt.Fprintf(out, "posts:  %d\n", user.PostsCount)
	fmt.Fprintf(out, "joined: %s\n", user.CreatedAt.Local().Format("2006-01-02"))
	return nil
}

func timeline(ctx context.Context, client *sea.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("timeline", flag.ContinueOnError)
	var (
		count  int
		since  int64
		after  int64
		search string
	)
	fs.IntVar(&count, "count", 0, "Number of posts to fetch")
	fs.Int64Var(&since, "since", 0, "Only posts newer than this id")
	fs.Int64Var(&after, "after", 0, "Only posts older than this id")
	fs.StringVar(&search, "search", "", "Only posts matching this text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := client.FetchPublicTimeline(ctx, sea.TimelineQuery{
		Count:  count,
		Since:  domain.PostID(since),
		After:  domain.PostID(after),
		Search: search,
	})
	if err != nil {
		return err
	}

	users := lo.KeyBy(list.Users, func(u domain.User) domain.UserID { return u.ID })
	for _, p := range list.Posts {
		entry := domain.PostEntry{Post: p, Author: users[p.Author]}
		if err := render.Post(out, entry); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	return nil
}

func get(ctx context.Context, client *sea.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	id := fs.Int64("id", 0, "Post id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == 0 {
		return errors.New("--id is required")
	}

	entry, found, err := client.FetchPost(ctx, domain.PostID(*id))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("post %d not found", *id)
	}
	return render.Post(out, entry)
}

func post(ctx context.Context, client *sea.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("post", flag.ContinueOnError)
	var (
		text    string
		fileIDs string
		replyTo int64
	)
	fs.StringVar(&text, "text", "", "Post text")
	fs.StringVar(&fileIDs, "file-ids", "", "Comma separated ids of uploaded files to attach")
	fs.Int64Var(&replyTo, "reply-to", 0, "Id of the post to reply to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if text == "" {
		return errors.New("--text is required")
	}

	ids, err := parseFileIDs(fileIDs)
	if err != nil {
		return err
	}
	p := sea.NewPost{Text: text, FileIDs: ids}
	if replyTo != 0 {
		p.InReplyToID = lo.ToPtr(domain.PostID(replyTo))
	}

	entry, err := client.Post(ctx, p)
	if err != nil {
		return err
	}
	return render.Post(out, entry)
}

func parseFileIDs(s string) ([]domain.FileID, error) {
	var ids []domain.FileID
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid file id %q: %w", part, err)
		}
		ids = append(ids, domain.FileID(id))
	}
	return ids, nil
}

func newFlow(cfg *config.Config) (*oauth.Flow, error) {
	if err := cfg.RequireOAuth(); err != nil {
		return nil, err
	}
	return oauth.NewFlow(oauth.Config{
		AuthorizeURL: cfg.OAuthAuthorizeURL,
		TokenURL:     cfg.OAuthTokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.OAuthRedirectURL,
	}), nil
}

func login(ctx context.Context, cfg *config.Config, args []string, logger *slog.Logger, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	wait := fs.Bool("wait", false, "Receive the redirect on OAUTH_REDIRECT_URL and exchange the code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := newFlow(cfg)
	if err != nil {
		return err
	}
	authURL, state := flow.AuthorizeURL()
	fmt.Fprintf(out, "Open this URL to authorize:\n%s\n\n", authURL)
	if !*wait {
		fmt.Fprintf(out, "Then run: sea callback --saved-state %s --state <state> --code <code>\n", state)
		return nil
	}

	if cfg.OAuthRedirectURL == "" {
		return errors.New("OAUTH_REDIRECT_URL is required with --wait")
	}
	redirect, err := url.Parse(cfg.OAuthRedirectURL)
	if err != nil {
		return fmt.Errorf("parse redirect URL: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := httpserver.NewServer(redirect.Host, redirect.Path, flow, state, logger)
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start() }()
	defer func() {
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("error shutting down callback server", "error", err)
		}
	}()

	select {
	case res := <-server.Result():
		if res.Err != nil {
			return res.Err
		}
		return reportToken(ctx, cfg, res.Token, logger, out)
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reportToken prints the export line for tok and, when the API is
// configured, confirms the token by fetching the account it belongs to.
func reportToken(ctx context.Context, cfg *config.Config, tok *oauth2.Token, logger *slog.Logger, out io.Writer) error {
	fmt.Fprintf(out, "Authenticated. Export the token to use it:\nexport SEA_TOKEN=%s\n", tok.AccessToken)
	if cfg.SeaURL == "" {
		return nil
	}

	client, err := sea.NewClient(sea.Options{
		BaseURL:     cfg.SeaURL,
		TokenSource: oauth.TokenSource(tok),
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	user, err := client.FetchAccount(ctx)
	if err != nil {
		return fmt.Errorf("verify token: %w", err)
	}
	fmt.Fprintf(out, "Signed in as %s (@%s)\n", user.DisplayName(), user.ScreenName)
	return nil
}

func callback(ctx context.Context, cfg *config.Config, args []string, logger *slog.Logger, out io.Writer) error {
	fs := flag.NewFlagSet("callback", flag.ContinueOnError)
	var savedState, state, code string
	fs.StringVar(&savedState, "saved-state", "", "State printed by login")
	fs.StringVar(&state, "state", "", "State returned to the redirect URL")
	fs.StringVar(&code, "code", "", "Authorization code returned to the redirect URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := newFlow(cfg)
	if err != nil {
		return err
	}
	tok, err := flow.Exchange(ctx, savedState, state, code)
	if err != nil {
		return err
	}
	return reportToken(ctx, cfg, tok, logger, out)
}
