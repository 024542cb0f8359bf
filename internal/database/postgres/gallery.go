package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/pgvector/pgvector-go"
)

// GalleryRepository stores enrolled identities with their embeddings.
type GalleryRepository struct {
	pool *Pool
}

// NewGalleryRepository creates a new PostgreSQL gallery repository
func NewGalleryRepository(pool *Pool) *GalleryRepository {
	return &GalleryRepository{pool: pool}
}

// ReplaceGallery deletes all identities and inserts the given ones in a single transaction.
// Position is taken from the slice order.
func (r *GalleryRepository) ReplaceGallery(ctx context.Context, identities []database.StoredIdentity) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM identities"); err != nil {
		return fmt.Errorf("clear identities: %w", err)
	}

	query := `
		INSERT INTO identities (identity, embedding, model, dim, source_path, position)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i, id := range identities {
		_, err := tx.ExecContext(ctx, query,
			id.Identity,
			pgvector.NewVector(id.Embedding),
			id.Model,
			len(id.Embedding),
			id.SourcePath,
			i,
		)
		if err != nil {
			return fmt.Errorf("insert identity %s: %w", id.Identity, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit gallery: %w", err)
	}
	return nil
}

// ListIdentities returns all identities in enrollment order.
func (r *GalleryRepository) ListIdentities(ctx context.Context) ([]database.StoredIdentity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT identity, embedding, model, dim, source_path, position, created_at
		FROM identities
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var identities []database.StoredIdentity
	for rows.Next() {
		var id database.StoredIdentity
		var vec pgvector.Vector
		if err := rows.Scan(&id.Identity, &vec, &id.Model, &id.Dim, &id.SourcePath, &id.Position, &id.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		id.Embedding = vec.Slice()
		identities = append(identities, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

// CountIdentities returns the number of enrolled identities.
func (r *GalleryRepository) CountIdentities(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}
