// internal/github/client.go
package github

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"code-to-content/internal/model"
)

const (
	perPage = 100
	// Hard safety cap on the "all repositories" page walk (1000 repos).
	maxRepoPages = 10
	// Detailed stats are only fetched for the first detailCap commits of a
	// sync window.
	detailCap = 50
	// Commit-detail requests run in batches of batchSize with a fixed pause
	// between batches. A crude rate-limit guard, not an adaptive backoff.
	batchSize  = 10
	batchPause = 100 * time.Millisecond
)

// Client is a wrapper around the go-github client, authenticated with one
// user's access token.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

// NewClient creates and configures a new Client instance.
// The provided token is used to create an authenticated http.Client.
func NewClient(token string, logger *slog.Logger) *Client {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	return &Client{
		gh:     github.NewClient(tc),
		logger: logger,
	}
}

// OverrideBaseURL points the client at a different API host. Test hook.
func (c *Client) OverrideBaseURL(url string) error {
	ghc, err := github.NewClient(nil).WithEnterpriseURLs(url, url)
	if err != nil {
		return err
	}
	c.gh = ghc
	return nil
}

// GetAuthenticatedUser fetches the token owner's GitHub profile.
func (c *Client) GetAuthenticatedUser(ctx context.Context) (*github.User, error) {
	user, _, err := c.gh.Users.Get(ctx, "")
	return user, err
}

// ListAllRepositories fetches every repository accessible to the token,
// sorted by most recent push. Pagination is a manual page-increment loop that
// stops on a short page, capped at maxRepoPages.
func (c *Client) ListAllRepositories(ctx context.Context) ([]model.RemoteRepository, error) {
	var all []model.RemoteRepository

	opts := &github.RepositoryListByAuthenticatedUserOptions{
		Sort:        "pushed",
		Direction:   "desc",
		Affiliation: "owner,collaborator",
		ListOptions: github.ListOptions{PerPage: perPage, Page: 1},
	}

	for opts.Page <= maxRepoPages {
		c.logger.Debug("Fetching repositories page", "page", opts.Page)

		repos, _, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, err
		}

		for _, repo := range repos {
			all = append(all, toRemoteRepository(repo))
		}

		// A short page means there are no more.
		if len(repos) < perPage {
			break
		}
		opts.Page++
	}

	return all, nil
}

// GetRepository fetches a single repository.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (model.RemoteRepository, error) {
	repo, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return model.RemoteRepository{}, err
	}
	return toRemoteRepository(repo), nil
}

// ListCommits fetches one page of up to 100 commits on a branch since the
// given time. Sync deliberately does not walk further pages.
func (c *Client) ListCommits(ctx context.Context, owner, name, branch string, since time.Time) ([]model.RemoteCommit, error) {
	opts := &github.CommitsListOptions{
		SHA:         branch,
		Since:       since,
		ListOptions: github.ListOptions{PerPage: perPage, Page: 1},
	}

	commits, _, err := c.gh.Repositories.ListCommits(ctx, owner, name, opts)
	if err != nil {
		return nil, err
	}

	result := make([]model.RemoteCommit, 0, len(commits))
	for _, commit := range commits {
		result = append(result, toRemoteCommit(commit))
	}
	return result, nil
}

// GetCommit fetches a single commit with full stats and file list.
func (c *Client) GetCommit(ctx context.Context, owner, name, sha string) (model.RemoteCommit, error) {
	commit, _, err := c.gh.Repositories.GetCommit(ctx, owner, name, sha, nil)
	if err != nil {
		return model.RemoteCommit{}, err
	}
	return toRemoteCommit(commit), nil
}

// ListCommitsWithDetails lists commits in the window and enriches the first
// detailCap of them with per-commit stats, fetched in bounded concurrent
// batches with a fixed pause in between.
func (c *Client) ListCommitsWithDetails(ctx context.Context, owner, name, branch string, since time.Time) ([]model.RemoteCommit, error) {
	commits, err := c.ListCommits(ctx, owner, name, branch, since)
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, nil
	}

	toDetail := commits
	if len(toDetail) > detailCap {
		toDetail = toDetail[:detailCap]
	}

	detailed := make([]model.RemoteCommit, len(toDetail))
	for start := 0; start < len(toDetail); start += batchSize {
		end := start + batchSize
		if end > len(toDetail) {
			end = len(toDetail)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				detail, err := c.GetCommit(gctx, owner, name, toDetail[i].SHA)
				if err != nil {
					return err
				}
				detailed[i] = detail
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		if end < len(toDetail) {
			time.Sleep(batchPause)
		}
	}

	// Commits past the detail cap keep their listing-level data.
	return append(detailed, commits[len(toDetail):]...), nil
}

// GetRateLimit returns the token's current core rate limit.
func (c *Client) GetRateLimit(ctx context.Context) (*github.RateLimits, error) {
	limits, _, err := c.gh.RateLimit.Get(ctx)
	return limits, err
}

// CreateWebhook registers a push webhook on the repository and returns its id.
func (c *Client) CreateWebhook(ctx context.Context, owner, name, hookURL, secret string) (int64, error) {
	hook, _, err := c.gh.Repositories.CreateHook(ctx, owner, name, &github.Hook{
		Config: &github.HookConfig{
			URL:         github.String(hookURL),
			ContentType: github.String("json"),
			Secret:      github.String(secret),
		},
		Events: []string{"push"},
		Active: github.Bool(true),
	})
	if err != nil {
		return 0, err
	}
	return hook.GetID(), nil
}

// DeleteWebhook removes a previously created webhook.
func (c *Client) DeleteWebhook(ctx context.Context, owner, name string, hookID int64) error {
	_, err := c.gh.Repositories.DeleteHook(ctx, owner, name, hookID)
	return err
}

// toRemoteRepository translates a github.Repository to our internal shape.
func toRemoteRepository(r *github.Repository) model.RemoteRepository {
	return model.RemoteRepository{
		GithubRepoID:  r.GetID(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Owner:         r.GetOwner().GetLogin(),
		URL:           r.GetHTMLURL(),
		DefaultBranch: r.GetDefaultBranch(),
		Language:      r.Language,
		Description:   r.Description,
		IsPrivate:     r.GetPrivate(),
		Stars:         r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
		UpdatedAt:     r.GetUpdatedAt().Time,
		PushedAt:      r.GetPushedAt().Time,
	}
}

// toRemoteCommit translates a github.RepositoryCommit to our internal shape.
// Stats and files are only present on detail responses.
func toRemoteCommit(c *github.RepositoryCommit) model.RemoteCommit {
	return model.RemoteCommit{
		SHA:          c.GetSHA(),
		Message:      c.GetCommit().GetMessage(),
		AuthorName:   c.GetCommit().GetAuthor().GetName(),
		AuthorEmail:  c.GetCommit().GetAuthor().GetEmail(),
		CommittedAt:  c.GetCommit().GetAuthor().GetDate().Time,
		FilesChanged: len(c.Files),
		Additions:    c.GetStats().GetAdditions(),
		Deletions:    c.GetStats().GetDeletions(),
		URL:          c.GetHTMLURL(),
	}
}
