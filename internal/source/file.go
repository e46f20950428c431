package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/fabric"
	apperrors "github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/errors"
)

// FileSource reads a hierarchy snapshot from a YAML (or JSON) document whose
// root is a single object with nested children.
type FileSource struct {
	path   string
	logger *slog.Logger
}

func NewFileSource(path string) *FileSource {
	return &FileSource{
		path:   path,
		logger: slog.Default().With("component", "file-source", "path", path),
	}
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Load(ctx context.Context) (*fabric.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading snapshot %s: %v", apperrors.ErrSourceUnavailable, s.path, err)
	}
	root, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.path, err)
	}
	s.logger.Info("snapshot loaded", "objects", fabric.Count(root))
	return root, nil
}

// Decode parses a snapshot document, links parents and validates it.
func Decode(data []byte) (*fabric.Object, error) {
	var root fabric.Object
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidSnapshot, err)
	}
	if err := validate(&root); err != nil {
		return nil, err
	}
	root.Link()
	return &root, nil
}
