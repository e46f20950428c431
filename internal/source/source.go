// Package source loads the fabric object hierarchy that the search index is
// built from. Sources perform I/O; the index never does.
package source

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/fabric"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/postgres"
)

// Source produces a fully populated fabric hierarchy.
type Source interface {
	Name() string
	Load(ctx context.Context) (*fabric.Object, error)
}

// validate checks that every object carries a class and a DN.
func validate(root *fabric.Object) error {
	if root == nil {
		return fmt.Errorf("%w: empty hierarchy", apperrors.ErrInvalidSnapshot)
	}
	var err error
	fabric.Walk(root, func(o *fabric.Object) bool {
		if err != nil {
			return false
		}
		switch {
		case o.DN == "":
			err = fmt.Errorf("%w: %s object %q has no dn", apperrors.ErrInvalidSnapshot, o.Class, o.Name)
		case o.Class == "":
			err = fmt.Errorf("%w: object %s has no class", apperrors.ErrInvalidSnapshot, o.DN)
		}
		return err == nil
	})
	return err
}

// FromConfig opens the source selected by cfg.Source.Kind. The returned
// close function releases any connection the source holds.
func FromConfig(ctx context.Context, cfg *config.Config) (Source, func() error, error) {
	switch cfg.Source.Kind {
	case config.SourceFile:
		return NewFileSource(cfg.Source.SnapshotPath), func() error { return nil }, nil
	case config.SourcePostgres:
		client, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, err)
		}
		return NewPostgresSource(client), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown source kind %q", apperrors.ErrInvalidInput, cfg.Source.Kind)
	}
}
