// Package github wraps the go-github client with the two calls the README
// sweep needs: listing an organization's repositories and fetching README
// contents.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v67/github"
)

// Repo is the subset of repository fields the sweep cares about.
type Repo struct {
	Name        string
	FullName    string
	Description string
	Archived    bool
	Fork        bool
}

// Readme is a decoded README file.
type Readme struct {
	FileName string
	Content  string
}

type authTransport struct {
	token string
	base  http.RoundTripper
}

func (a *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header = req.Header.Clone()
	clone.Header.Set("Authorization", "Bearer "+a.token)
	return a.base.RoundTrip(clone)
}

// Client wraps go-github with sweep-specific convenience methods.
type Client struct {
	api *gh.Client
}

// NewClient builds a client. An empty token yields anonymous access, which
// is enough for public organizations but rate-limited harder.
func NewClient(token string, httpClient *http.Client) *Client {
	token = strings.TrimSpace(token)
	if httpClient == nil {
		httpClient = &http.Client{Transport: http.DefaultTransport}
	}
	if token != "" {
		baseTransport := httpClient.Transport
		if baseTransport == nil {
			baseTransport = http.DefaultTransport
		}
		wrapped := *httpClient
		wrapped.Transport = &authTransport{token: token, base: baseTransport}
		httpClient = &wrapped
	}
	return &Client{api: gh.NewClient(httpClient)}
}

// NewClientFromGoGitHub wraps an existing go-github client.
func NewClientFromGoGitHub(api *gh.Client) *Client {
	return &Client{api: api}
}

// ListOrgRepos returns all public repositories of an organization.
func (c *Client) ListOrgRepos(ctx context.Context, org string) ([]Repo, error) {
	opt := &gh.RepositoryListByOrgOptions{
		Type:        "public",
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	out := make([]Repo, 0)

	for {
		repos, resp, err := c.api.Repositories.ListByOrg(ctx, org, opt)
		if err != nil {
			return nil, fmt.Errorf("list repositories for %s: %w", org, err)
		}
		for _, r := range repos {
			out = append(out, Repo{
				Name:        r.GetName(),
				FullName:    r.GetFullName(),
				Description: r.GetDescription(),
				Archived:    r.GetArchived(),
				Fork:        r.GetFork(),
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return out, nil
}

// Readme fetches and decodes the repository's README, whatever its exact
// file name.
func (c *Client) Readme(ctx context.Context, org, repo string) (*Readme, error) {
	readme, _, err := c.api.Repositories.GetReadme(ctx, org, repo, nil)
	if err != nil {
		return nil, fmt.Errorf("get readme for %s/%s: %w", org, repo, err)
	}
	content, err := readme.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode readme for %s/%s: %w", org, repo, err)
	}
	name := readme.GetName()
	if name == "" {
		name = "README.md"
	}
	return &Readme{FileName: name, Content: content}, nil
}

// IsNotFound reports whether err is a GitHub 404 response, which for README
// lookups means the repository simply has none.
func IsNotFound(err error) bool {
	var errResp *gh.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode == http.StatusNotFound
	}
	return false
}
