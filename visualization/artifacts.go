// Package visualization renders the training plots to PNG files.
package visualization

import (
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

// DefaultSubdir is where plots land below the artifact root.
const DefaultSubdir = "plotting"

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// ArtifactStore allocates fresh, collision-free plot paths below Root.
type ArtifactStore struct {
	Root   string
	Subdir string
}

// NewArtifactStore returns a store writing to root/plotting.
func NewArtifactStore(root string) *ArtifactStore {
	return &ArtifactStore{Root: root, Subdir: DefaultSubdir}
}

// NewPath returns the absolute file path of a new "<uuid>.png" artifact
// together with the slash-separated path relative to Root. The directory is
// created if needed.
func (s *ArtifactStore) NewPath() (abs, rel string, err error) {
	subdir := s.Subdir
	if subdir == "" {
		subdir = DefaultSubdir
	}
	dir := filepath.Join(s.Root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", errors.Wrapf(err, "create plot directory %s", dir)
	}
	name := uuid.NewString() + ".png"
	return filepath.Join(dir, name), path.Join(filepath.ToSlash(subdir), name), nil
}

// Save renders p into a new artifact and returns its relative path.
func (s *ArtifactStore) Save(p *plot.Plot, w, h vg.Length) (string, error) {
	abs, rel, err := s.NewPath()
	if err != nil {
		return "", err
	}
	if err := p.Save(w, h, abs); err != nil {
		return "", errors.Wrapf(err, "save plot %s", rel)
	}
	return rel, nil
}
