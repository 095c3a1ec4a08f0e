// Package googletasks stores the task collection in a dedicated Google Tasks
// list. It implements the remote and authenticator used by the sync package.
package googletasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/dori/todosync/internal/config"
	"github.com/dori/todosync/internal/model"
)

const (
	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 10 * time.Second

	// OAuth scope for Google Tasks
	tasksScope = "https://www.googleapis.com/auth/tasks"
)

// ErrNotLoggedIn is returned by New when no token has been stored
var ErrNotLoggedIn = errors.New("not logged in (run: todosync login)")

// Client talks to the Google Tasks API
type Client struct {
	svc          *tasks.Service
	listName     string
	pollInterval time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithListName sets the title of the list holding the tasks
func WithListName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.listName = name
		}
	}
}

// WithPollInterval sets how often subscriptions poll for changes
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// New creates a client from the stored OAuth client and token.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Client, error) {
	if !cfg.HasToken() {
		return nil, ErrNotLoggedIn
	}

	oauthConfig, err := loadOAuthConfig(cfg)
	if err != nil {
		return nil, err
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	// Token source refreshes on its own
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))

	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}

	opts = append([]Option{WithListName(cfg.Sync.ListName), WithPollInterval(cfg.PollInterval())}, opts...)
	return newClient(svc, opts...), nil
}

// NewWithHTTPClient creates a client with a custom HTTP client and endpoint
// (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint string, opts ...Option) (*Client, error) {
	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient), option.WithEndpoint(endpoint))
	if err != nil {
		return nil, err
	}
	return newClient(svc, opts...), nil
}

func newClient(svc *tasks.Service, opts ...Option) *Client {
	c := &Client{
		svc:          svc,
		listName:     config.AppName,
		pollInterval: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func loadOAuthConfig(cfg config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, tasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}
	return oauthConfig, nil
}

// SignIn finds the todosync list, creating it on first use. The list id is
// the user id passed to every other call.
func (c *Client) SignIn(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var listID string
	err := c.svc.Tasklists.List().MaxResults(100).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, list := range resp.Items {
			if listID == "" && strings.EqualFold(strings.TrimSpace(list.Title), c.listName) {
				listID = list.Id
			}
		}
		return nil
	})
	if err != nil {
		return "", wrapError(err)
	}
	if listID != "" {
		return listID, nil
	}

	list, err := c.svc.Tasklists.Insert(&tasks.TaskList{Title: c.listName}).Context(ctx).Do()
	if err != nil {
		return "", wrapError(err)
	}
	return list.Id, nil
}

// Create inserts a task and returns its remote id
func (c *Client) Create(ctx context.Context, listID string, t model.Task) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	created, err := c.svc.Tasks.Insert(listID, toAPI(t)).Context(ctx).Do()
	if err != nil {
		return "", wrapError(err)
	}
	return created.Id, nil
}

// Update replaces the stored task
func (c *Client) Update(ctx context.Context, listID, remoteID string, t model.Task) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	item := toAPI(t)
	item.Id = remoteID
	if _, err := c.svc.Tasks.Update(listID, remoteID, item).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	return nil
}

// Delete removes a task. A task that is already gone counts as deleted.
func (c *Client) Delete(ctx context.Context, listID, remoteID string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	err := c.svc.Tasks.Delete(listID, remoteID).Context(ctx).Do()
	if isNotFound(err) {
		return nil
	}
	return wrapError(err)
}

// Move places a task directly before another in collection order. The list
// is shown newest first by Google, so collection order is the reverse of
// position order and "before X" is "after X" there.
func (c *Client) Move(ctx context.Context, listID, remoteID, beforeRemoteID string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	call := c.svc.Tasks.Move(listID, remoteID)
	if beforeRemoteID != "" {
		call = call.Previous(beforeRemoteID)
	}
	if _, err := call.Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	return nil
}

// Fetch returns the whole list as a collection, in collection order
func (c *Client) Fetch(ctx context.Context, listID string) (model.Collection, error) {
	items, err := c.listAll(ctx, listID)
	if err != nil {
		return nil, err
	}
	return toCollection(items), nil
}

func (c *Client) listAll(ctx context.Context, listID string) ([]*tasks.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var items []*tasks.Task
	err := c.svc.Tasks.List(listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			items = append(items, resp.Items...)
			return nil
		})
	if err != nil {
		return nil, wrapError(err)
	}
	return items, nil
}

// toCollection orders items by descending position and makes local ids unique
func toCollection(items []*tasks.Task) model.Collection {
	items = slices.Clone(items)
	slices.SortStableFunc(items, func(a, b *tasks.Task) int {
		return strings.Compare(b.Position, a.Position)
	})

	out := make(model.Collection, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.Deleted {
			continue
		}
		t := fromAPI(item)
		if _, dup := seen[t.ID]; dup {
			t.ID = "g-" + item.Id
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("token expired or revoked (run: todosync login): %w", err)
		case http.StatusNotFound:
			return fmt.Errorf("not found: %w", err)
		}
	}

	return err
}
