package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/fabric"
	apperrors "github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/postgres"
)

const selectObjects = `SELECT dn, COALESCE(parent_dn, ''), class, name, COALESCE(attributes, '{}'::jsonb)
FROM fabric_objects`

// PostgresSource assembles the hierarchy from the fabric_objects table, one
// row per object keyed by dn with a nullable parent_dn.
type PostgresSource struct {
	client *postgres.Client
	logger *slog.Logger
}

func NewPostgresSource(client *postgres.Client) *PostgresSource {
	return &PostgresSource{
		client: client,
		logger: slog.Default().With("component", "postgres-source"),
	}
}

func (s *PostgresSource) Name() string { return "postgres" }

// Row is one fabric_objects row.
type Row struct {
	DN         string
	ParentDN   string
	Class      string
	Name       string
	Attributes map[string]string
}

func (s *PostgresSource) Load(ctx context.Context) (*fabric.Object, error) {
	var all []Row
	err := s.client.ReadTx(ctx, func(tx *sql.Tx) error {
		var err error
		all, err = scanRows(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	root, err := Assemble(all)
	if err != nil {
		return nil, err
	}
	s.logger.Info("hierarchy loaded", "objects", len(all))
	return root, nil
}

func scanRows(ctx context.Context, tx *sql.Tx) ([]Row, error) {
	rows, err := tx.QueryContext(ctx, selectObjects)
	if err != nil {
		return nil, fmt.Errorf("%w: querying fabric_objects: %v", apperrors.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var all []Row
	for rows.Next() {
		var (
			r     Row
			attrs []byte
		)
		if err := rows.Scan(&r.DN, &r.ParentDN, &r.Class, &r.Name, &attrs); err != nil {
			return nil, fmt.Errorf("scanning fabric_objects row: %w", err)
		}
		if err := json.Unmarshal(attrs, &r.Attributes); err != nil {
			return nil, fmt.Errorf("%w: attributes of %s: %v", apperrors.ErrInvalidSnapshot, r.DN, err)
		}
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating fabric_objects: %v", apperrors.ErrSourceUnavailable, err)
	}
	return all, nil
}

// Assemble links rows into a tree. Exactly one row must have no parent;
// children are ordered by dn so repeated loads produce the same tree.
func Assemble(rows []Row) (*fabric.Object, error) {
	objects := make(map[string]*fabric.Object, len(rows))
	for _, r := range rows {
		if _, dup := objects[r.DN]; dup {
			return nil, fmt.Errorf("%w: duplicate dn %s", apperrors.ErrInvalidSnapshot, r.DN)
		}
		objects[r.DN] = &fabric.Object{
			Class:      r.Class,
			Name:       r.Name,
			DN:         r.DN,
			Attributes: r.Attributes,
		}
	}

	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DN < sorted[j].DN })

	var root *fabric.Object
	for _, r := range sorted {
		obj := objects[r.DN]
		if r.ParentDN == "" {
			if root != nil {
				return nil, fmt.Errorf("%w: multiple roots %s and %s", apperrors.ErrInvalidSnapshot, root.DN, r.DN)
			}
			root = obj
			continue
		}
		parent, ok := objects[r.ParentDN]
		if !ok {
			return nil, fmt.Errorf("%w: %s references missing parent %s", apperrors.ErrInvalidSnapshot, r.DN, r.ParentDN)
		}
		parent.AddChild(obj)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: no root object", apperrors.ErrInvalidSnapshot)
	}
	if err := validate(root); err != nil {
		return nil, err
	}
	if n := fabric.Count(root); n != len(rows) {
		return nil, fmt.Errorf("%w: %d objects unreachable from root %s", apperrors.ErrInvalidSnapshot, len(rows)-n, root.DN)
	}
	return root, nil
}
