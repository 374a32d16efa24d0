// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/naka-gawa/github-contributors/internal/domain"
)

// historyPageSize is the largest page the history connection accepts.
const historyPageSize = 100

// Fetcher defines how contributors for a single file are read from GitHub.
type Fetcher interface {
	FetchContributors(ctx context.Context, owner, name, branch, path string) ([]domain.Contributor, error)
}

// Inspector answers the questions `doctor` asks about the configured repository.
type Inspector interface {
	InspectRepository(ctx context.Context, owner, name string) (*RepositoryInfo, error)
	BranchExists(ctx context.Context, owner, name, branch string) (bool, error)
}

// RepositoryInfo is the subset of repository metadata doctor reports.
type RepositoryInfo struct {
	FullName      string
	DefaultBranch string
	Private       bool
}

// GitHubGateway is the concrete implementation of Fetcher and Inspector.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        logrus.FieldLogger
}

var (
	_ Fetcher   = (*GitHubGateway)(nil)
	_ Inspector = (*GitHubGateway)(nil)
)

// historyAuthor is the GitActor of one commit in a file's history.
type historyAuthor struct {
	Name      string
	Date      string
	AvatarURL string `graphql:"avatarUrl"`
	User      *struct {
		Login string
	}
}

// fileHistoryQuery walks the commits touching $path on $branch, newest first.
type fileHistoryQuery struct {
	Repository struct {
		Object *struct {
			Commit struct {
				History struct {
					PageInfo struct {
						HasNextPage bool
						EndCursor   githubv4.String
					}
					Nodes []struct {
						Author historyAuthor
					}
				} `graphql:"history(first: $first, path: $path, after: $cursor)"`
			} `graphql:"... on Commit"`
		} `graphql:"object(expression: $branch)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGitHubGateway creates a gateway authenticated with token. api is the
// GraphQL endpoint; the REST endpoint is derived from its host.
func NewGitHubGateway(token, api string, logger logrus.FieldLogger) (*GitHubGateway, error) {
	if token == "" {
		return nil, errors.New("no GitHub token provided (set repo.token or GITHUB_TOKEN)")
	}
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create rate limit waiter")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}

	restClient, err := newRESTClient(api, httpClient)
	if err != nil {
		return nil, err
	}
	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: githubv4.NewEnterpriseClient(api, httpClient),
		logger:        logger,
	}, nil
}

// newRESTClient points go-github at the same host as the GraphQL endpoint.
// GitHub Enterprise serves GraphQL at /api/graphql and REST at /api/v3.
func newRESTClient(api string, httpClient *http.Client) (*github.Client, error) {
	u, err := url.Parse(api)
	if err != nil {
		return nil, errors.WrapIff(err, "invalid GitHub API URL %q", api)
	}
	client := github.NewClient(httpClient)
	if u.Host == "" || u.Host == "api.github.com" {
		return client, nil
	}
	base := u.Scheme + "://" + u.Host + "/"
	client, err = client.WithEnterpriseURLs(base, base)
	if err != nil {
		return nil, errors.WrapIff(err, "invalid GitHub Enterprise URL %q", base)
	}
	return client, nil
}

// FetchContributors returns the authors of every commit touching path on
// branch, newest first, one entry per person with their latest commit date.
func (g *GitHubGateway) FetchContributors(ctx context.Context, owner, name, branch, path string) ([]domain.Contributor, error) {
	variables := map[string]interface{}{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(name),
		"branch": githubv4.String(branch),
		"path":   githubv4.String(path),
		"first":  githubv4.Int(historyPageSize),
		"cursor": (*githubv4.String)(nil),
	}

	var authors []historyAuthor
	for {
		var q fileHistoryQuery
		if err := g.query(ctx, &q, variables); err != nil {
			return nil, errors.WrapIff(err, "failed to fetch history for %q", path)
		}
		if q.Repository.Object == nil {
			return nil, errors.Errorf("branch %q not found in %s", branch, domain.RepositorySlug(owner, name))
		}
		history := q.Repository.Object.Commit.History
		for _, node := range history.Nodes {
			authors = append(authors, node.Author)
		}
		if !history.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(history.PageInfo.EndCursor)
		g.logger.WithField("path", path).Debug("fetching next page of file history...")
	}
	return uniqueContributors(authors), nil
}

// uniqueContributors keeps the first (most recent) entry per login, or per
// display name for authors without a linked GitHub account.
func uniqueContributors(authors []historyAuthor) []domain.Contributor {
	contributors := make([]domain.Contributor, 0, len(authors))
	seen := make(map[string]struct{}, len(authors))
	for _, author := range authors {
		c := domain.Contributor{
			Date:      author.Date,
			Name:      author.Name,
			AvatarURL: author.AvatarURL,
		}
		if author.User != nil {
			c.Login = author.User.Login
		}
		key := "login:" + strings.ToLower(c.Login)
		if c.Login == "" {
			key = "name:" + c.Name
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		contributors = append(contributors, c)
	}
	return contributors
}

// InspectRepository reads repository metadata through the REST API.
func (g *GitHubGateway) InspectRepository(ctx context.Context, owner, name string) (*RepositoryInfo, error) {
	repo, _, err := g.restClient.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, errors.WrapIff(err, "failed to get repository %s", domain.RepositorySlug(owner, name))
	}
	return &RepositoryInfo{
		FullName:      repo.GetFullName(),
		DefaultBranch: repo.GetDefaultBranch(),
		Private:       repo.GetPrivate(),
	}, nil
}

// BranchExists reports whether branch exists in owner/name.
func (g *GitHubGateway) BranchExists(ctx context.Context, owner, name, branch string) (bool, error) {
	_, resp, err := g.restClient.Repositories.GetBranch(ctx, owner, name, branch, 1)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, errors.WrapIff(err, "failed to get branch %q", branch)
	}
	return true, nil
}

func (g *GitHubGateway) query(ctx context.Context, query any, variables map[string]any) (reterr error) {
	log := g.logger.WithField("variables", variables)
	log.Debug("executing GitHub API query...")
	startTime := time.Now()
	defer func() {
		log := log.WithField("elapsed", time.Since(startTime))
		if reterr != nil {
			log.WithError(reterr).Debug("GitHub API query failed")
		} else {
			log.Debug("GitHub API query succeeded")
		}
	}()
	return g.graphqlClient.Query(ctx, query, variables)
}
