package store

import (
	"context"
	"time"
)

// MetricSample is one node-reported measurement (CPU/memory/disk sourced
// from gopsutil), retained until ExpireAt.
type MetricSample struct {
	Key       string    `db:"key"`
	CreatedAt time.Time `db:"created_at"`
	ExpireAt  time.Time `db:"expire_at"`
	NodeName  string    `db:"node_name"`
	Kind      string    `db:"kind"`
	Data      []byte    `db:"data"`
}

// CreateMetric inserts a new metric sample.
func (s *Store) CreateMetric(ctx context.Context, m MetricSample) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metrics (key, created_at, expire_at, node_name, kind, data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.Key, m.CreatedAt, m.ExpireAt, m.NodeName, m.Kind, m.Data)
	return err
}

// ListMetricsByNode returns unexpired metric samples for nodeName, newest
// first.
func (s *Store) ListMetricsByNode(ctx context.Context, nodeName string, limit int) ([]MetricSample, error) {
	var out []MetricSample
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM metrics
		WHERE node_name = $1 AND expire_at > now()
		ORDER BY created_at DESC LIMIT $2
	`, nodeName, limit)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PruneExpiredMetrics removes every metric sample past its expiry, returning
// the count removed.
func (s *Store) PruneExpiredMetrics(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM metrics WHERE expire_at <= now()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
