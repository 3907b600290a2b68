package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/orgbridge/go-orgbridge/internal/svclog"
)

// docSuffixes are the file types the directory source picks up.
var docSuffixes = []string{".md", ".markdown", ".txt"}

func hasDocSuffix(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range docSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// IngestDir walks root and ingests every markdown and text file found,
// skipping hidden directories. Returns the file and chunk counts.
func (p *Pipeline) IngestDir(ctx context.Context, root string) (int, int, error) {
	var files, chunks int
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !hasDocSuffix(d.Name()) {
			return nil
		}

		n, err := p.IngestFile(ctx, path, map[string]any{"source": "local"})
		if err != nil {
			return err
		}
		svclog.Log.Info("Ingested document", "file", path, "chunks", n)
		files++
		chunks += n
		return nil
	})
	return files, chunks, err
}
