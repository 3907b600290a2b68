package ingest

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Manifest configures a README sweep across one or more GitHub
// organizations.
//
//	output_dir = "reference-app-readmes"
//
//	[[orgs]]
//	name = "heroku-reference-apps"
//	exclude = ["*-archive"]
type Manifest struct {
	OutputDir string      `toml:"output_dir"`
	Orgs      []OrgSource `toml:"orgs"`
}

// OrgSource selects an organization and optionally narrows its repositories
// with glob filters.
type OrgSource struct {
	Name    string   `toml:"name"`
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

// DefaultManifest sweeps the Heroku reference apps organization.
func DefaultManifest() *Manifest {
	return &Manifest{
		OutputDir: DefaultOutputDir,
		Orgs:      []OrgSource{{Name: DefaultOrg}},
	}
}

// LoadManifest reads and validates a TOML sweep manifest.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("ingest: read manifest %s: %w", path, err)
	}
	if m.OutputDir == "" {
		m.OutputDir = DefaultOutputDir
	}
	if len(m.Orgs) == 0 {
		return nil, fmt.Errorf("ingest: manifest %s lists no orgs", path)
	}
	for i, org := range m.Orgs {
		if org.Name == "" {
			return nil, fmt.Errorf("ingest: manifest %s: orgs[%d] has no name", path, i)
		}
	}
	return &m, nil
}

// SweepManifest runs a README sweep for every organization in the manifest
// and merges the per-org results.
func (p *Pipeline) SweepManifest(ctx context.Context, src RepoSource, m *Manifest, skipExisting bool) (*SweepResult, error) {
	total := &SweepResult{}
	for _, org := range m.Orgs {
		res, err := p.SweepReadmes(ctx, src, SweepOptions{
			Org:          org.Name,
			OutputDir:    m.OutputDir,
			Include:      org.Include,
			Exclude:      org.Exclude,
			SkipExisting: skipExisting,
		})
		if err != nil {
			return nil, err
		}
		total.Repos += res.Repos
		total.Downloaded += res.Downloaded
		total.Reused += res.Reused
		total.Ingested += res.Ingested
		total.Chunks += res.Chunks
		total.Missing = append(total.Missing, res.Missing...)
		total.Failed = append(total.Failed, res.Failed...)
	}
	return total, nil
}
