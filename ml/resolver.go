package ml

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Registry resolves a registered model name to the artifact directory of
// its latest version.
type Registry interface {
	LatestSource(ctx context.Context, name string) (string, error)
}

// Resolver locates the serving model: the registry is asked first, and on
// any failure the local artifact tree is scanned for the newest loadable
// bundle. A broken registry must never prevent serving a model that is
// available on disk.
type Resolver struct {
	registry     Registry
	artifactRoot string
	logger       *zap.Logger
}

func NewResolver(registry Registry, artifactRoot string, logger *zap.Logger) *Resolver {
	return &Resolver{
		registry:     registry,
		artifactRoot: artifactRoot,
		logger:       logger,
	}
}

// Resolve returns the loaded model, or nil when neither the registry nor
// the local scan produced one. Failures along the way are logged and
// skipped, never returned.
func (r *Resolver) Resolve(ctx context.Context, name string) Classifier {
	if r.registry != nil {
		source, err := r.registry.LatestSource(ctx, name)
		if err != nil {
			r.logger.Warn("registry lookup failed, falling back to local scan",
				zap.String("model", name), zap.Error(err))
		} else {
			model, err := LoadBundle(source)
			if err != nil {
				r.logger.Warn("registry bundle not loadable, falling back to local scan",
					zap.String("source", source), zap.Error(err))
			} else {
				r.logger.Info("model loaded from registry",
					zap.String("model", name), zap.String("source", source))
				return model
			}
		}
	}

	for _, cand := range rankCandidates(r.scan()) {
		model, err := LoadBundle(cand.Dir)
		if err != nil {
			r.logger.Warn("skipping artifact bundle",
				zap.String("dir", cand.Dir), zap.Error(err))
			continue
		}
		r.logger.Info("model loaded from local artifacts",
			zap.String("dir", cand.Dir), zap.Time("modified", cand.ModTime))
		return model
	}

	r.logger.Warn("no loadable model found",
		zap.String("model", name), zap.String("artifact_root", r.artifactRoot))
	return nil
}

// candidate is one bundle directory found by the scan, stamped with its
// manifest's modification time.
type candidate struct {
	Dir     string
	ModTime time.Time
}

// scan collects every directory under the artifact root that holds an
// MLmodel manifest. Unreadable paths are skipped, not fatal.
func (r *Resolver) scan() []candidate {
	var found []candidate
	err := filepath.WalkDir(r.artifactRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			r.logger.Debug("artifact scan cannot read path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() || d.Name() != ManifestName {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			r.logger.Debug("artifact scan cannot stat manifest", zap.String("path", path), zap.Error(err))
			return nil
		}
		found = append(found, candidate{Dir: filepath.Dir(path), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		r.logger.Warn("artifact scan failed",
			zap.String("artifact_root", r.artifactRoot), zap.Error(err))
	}
	return found
}

// rankCandidates orders bundles newest manifest first. Equal timestamps
// fall back to lexical path order so the result is deterministic.
func rankCandidates(found []candidate) []candidate {
	ranked := append([]candidate(nil), found...)
	sort.Slice(ranked, func(i, j int) bool {
		if !ranked[i].ModTime.Equal(ranked[j].ModTime) {
			return ranked[i].ModTime.After(ranked[j].ModTime)
		}
		return ranked[i].Dir < ranked[j].Dir
	})
	return ranked
}
