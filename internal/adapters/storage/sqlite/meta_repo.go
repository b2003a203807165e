package sqlite

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"medicine-tracker/internal/domain/meta"
)

type MetaRepo struct {
	db *sql.DB
}

func NewMetaRepo(db *sql.DB) *MetaRepo {
	return &MetaRepo{db: db}
}

func (r *MetaRepo) Version(ctx context.Context) (meta.Version, error) {
	var counter, lastUpdated string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM metadata WHERE key = 'version'`,
	).Scan(&counter)
	if err != nil {
		return meta.Version{}, err
	}
	err = r.db.QueryRowContext(ctx,
		`SELECT value FROM metadata WHERE key = 'last_updated'`,
	).Scan(&lastUpdated)
	if err != nil && err != sql.ErrNoRows {
		return meta.Version{}, err
	}

	v := meta.Version{}
	v.Counter, _ = strconv.ParseInt(counter, 10, 64)
	if lastUpdated != "" {
		v.LastUpdated, _ = time.Parse(time.RFC3339Nano, lastUpdated)
	}
	return v, nil
}
