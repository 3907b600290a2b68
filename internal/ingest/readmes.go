package ingest

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/orgbridge/go-orgbridge/internal/github"
	"github.com/orgbridge/go-orgbridge/internal/svclog"
)

const (
	// DefaultOrg is swept when no manifest or --org flag is given.
	DefaultOrg = "heroku-reference-apps"

	// DefaultOutputDir is where swept READMEs are saved.
	DefaultOutputDir = "reference-app-readmes"

	// sweepConcurrency bounds parallel README fetches per organization.
	sweepConcurrency = 4
)

// RepoSource is the slice of the GitHub API the sweep needs.
type RepoSource interface {
	ListOrgRepos(ctx context.Context, org string) ([]github.Repo, error)
	Readme(ctx context.Context, org, repo string) (*github.Readme, error)
}

// SweepOptions control one organization's README sweep.
type SweepOptions struct {
	Org          string
	OutputDir    string
	Include      []string // glob patterns; empty means every repo
	Exclude      []string // glob patterns; matches are skipped
	SkipExisting bool     // reuse files already in OutputDir instead of fetching
}

// SweepResult summarizes what a sweep touched.
type SweepResult struct {
	Repos      int      // repositories considered after filtering
	Downloaded int      // READMEs fetched from GitHub
	Reused     int      // existing files reused instead of fetched
	Ingested   int      // files that made it into the vector store
	Chunks     int      // total chunks stored
	Missing    []string // repositories without a README
	Failed     []string // repositories that errored, as "repo: reason"
}

// SweepReadmes downloads every README of an organization's public
// repositories into OutputDir as {repo}_{filename} and ingests each one. A
// repository without a README is recorded, not fatal.
func (p *Pipeline) SweepReadmes(ctx context.Context, src RepoSource, opts SweepOptions) (*SweepResult, error) {
	if opts.Org == "" {
		opts.Org = DefaultOrg
	}
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("ingest: create output dir: %w", err)
	}

	repos, err := src.ListOrgRepos(ctx, opts.Org)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	selected := make([]github.Repo, 0, len(repos))
	for _, repo := range repos {
		if matchRepo(repo.Name, opts.Include, opts.Exclude) {
			selected = append(selected, repo)
		}
	}
	svclog.Log.Info("Sweeping organization READMEs",
		"org", opts.Org, "repos", len(selected), "output_dir", opts.OutputDir)

	res := &SweepResult{Repos: len(selected)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, repo := range selected {
		g.Go(func() error {
			savedPath, downloaded, err := p.fetchReadme(gctx, src, opts, repo.Name)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil && github.IsNotFound(err):
				svclog.Log.Warn("Repository has no README", "repo", repo.FullName)
				res.Missing = append(res.Missing, repo.Name)
				return nil
			case err != nil:
				svclog.Log.Error("README fetch failed", "repo", repo.FullName, "error", err)
				res.Failed = append(res.Failed, fmt.Sprintf("%s: %v", repo.Name, err))
				return nil
			}
			if downloaded {
				res.Downloaded++
			} else {
				res.Reused++
			}

			n, err := p.IngestFile(gctx, savedPath, map[string]any{
				"source":    "github_readme",
				"repo_name": repo.Name,
				"org":       opts.Org,
			})
			if err != nil {
				svclog.Log.Error("README ingest failed", "repo", repo.FullName, "error", err)
				res.Failed = append(res.Failed, fmt.Sprintf("%s: %v", repo.Name, err))
				return nil
			}
			res.Ingested++
			res.Chunks += n
			svclog.Log.Info("Ingested README", "repo", repo.FullName, "file", savedPath, "chunks", n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(res.Missing)
	sort.Strings(res.Failed)
	return res, nil
}

// fetchReadme returns the on-disk path of a repository's README, either by
// reusing a previously saved file or by downloading a fresh copy.
func (p *Pipeline) fetchReadme(ctx context.Context, src RepoSource, opts SweepOptions, repo string) (string, bool, error) {
	if opts.SkipExisting {
		matches, err := filepath.Glob(filepath.Join(opts.OutputDir, repo+"_*"))
		if err == nil && len(matches) > 0 {
			return matches[0], false, nil
		}
	}

	readme, err := src.Readme(ctx, opts.Org, repo)
	if err != nil {
		return "", false, err
	}
	savedPath := filepath.Join(opts.OutputDir, repo+"_"+readme.FileName)
	if err := os.WriteFile(savedPath, []byte(readme.Content), 0o644); err != nil {
		return "", false, fmt.Errorf("save %s: %w", savedPath, err)
	}
	return savedPath, true, nil
}

// matchRepo applies include then exclude glob filters to a repository name.
func matchRepo(name string, include, exclude []string) bool {
	if len(include) > 0 {
		matched := false
		for _, pattern := range include {
			if ok, _ := path.Match(pattern, name); ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, pattern := range exclude {
		if ok, _ := path.Match(pattern, name); ok {
			return false
		}
	}
	return true
}
