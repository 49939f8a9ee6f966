package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/dicetab/internal/dist"
)

// ErrDistributionNotFound is returned when a cache lookup yields no results.
var ErrDistributionNotFound = errors.New("distribution not found")

// CachedDistribution mirrors one dist_cache row. Expression is the canonical
// rendering of the evaluated tree and is unique; Masses is the full PMF.
type CachedDistribution struct {
	ID         int64
	Expression string
	Masses     map[int]float64
	Mean       float64
	Stdev      float64
	Min        int
	Max        int
	ComputedAt time.Time
	Hits       int64
}

// NewCachedDistribution builds a cache row for expression from d.
//
// Precondition: d must be non-empty; expression should be the canonical
// rendering that produced d, or lookups will never hit.
func NewCachedDistribution(expression string, d dist.Distribution) *CachedDistribution {
	masses := make(map[int]float64, d.Len())
	for _, v := range d.Keys() {
		masses[v] = d.Get(v)
	}
	return &CachedDistribution{
		Expression: expression,
		Masses:     masses,
		Mean:       d.Mean(),
		Stdev:      d.Stdev(),
		Min:        d.Min(),
		Max:        d.Max(),
	}
}

// Distribution reconstructs the PMF stored in the row.
//
// Precondition: Masses must be non-empty.
func (c *CachedDistribution) Distribution() dist.Distribution {
	return dist.FromMasses(c.Masses)
}

// DistributionRepository provides dist_cache persistence operations.
type DistributionRepository struct {
	db *pgxpool.Pool
}

// NewDistributionRepository creates a DistributionRepository backed by the
// given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewDistributionRepository(db *pgxpool.Pool) *DistributionRepository {
	return &DistributionRepository{db: db}
}

// Put inserts the row or, when the expression is already cached, replaces its
// distribution and refreshes computed_at. The hit counter survives
// replacement.
//
// Precondition: c.Expression must be non-empty; c.Masses must be non-empty.
// Postcondition: Returns the stored row with ID, ComputedAt and Hits set.
func (r *DistributionRepository) Put(ctx context.Context, c *CachedDistribution) (*CachedDistribution, error) {
	var out CachedDistribution
	err := r.db.QueryRow(ctx, `
		INSERT INTO dist_cache
			(expression, masses, mean, stdev, min_value, max_value)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (expression) DO UPDATE SET
			masses = EXCLUDED.masses,
			mean = EXCLUDED.mean,
			stdev = EXCLUDED.stdev,
			min_value = EXCLUDED.min_value,
			max_value = EXCLUDED.max_value,
			computed_at = NOW()
		RETURNING id, expression, masses, mean, stdev, min_value, max_value,
		          computed_at, hits`,
		c.Expression, c.Masses, c.Mean, c.Stdev, c.Min, c.Max,
	).Scan(
		&out.ID, &out.Expression, &out.Masses, &out.Mean, &out.Stdev,
		&out.Min, &out.Max, &out.ComputedAt, &out.Hits,
	)
	if err != nil {
		return nil, fmt.Errorf("storing distribution: %w", err)
	}
	return &out, nil
}

// Get retrieves a cached distribution by its canonical expression.
//
// Precondition: expression must be non-empty.
// Postcondition: Returns the row or ErrDistributionNotFound.
func (r *DistributionRepository) Get(ctx context.Context, expression string) (*CachedDistribution, error) {
	var c CachedDistribution
	err := r.db.QueryRow(ctx, `
		SELECT id, expression, masses, mean, stdev, min_value, max_value,
		       computed_at, hits
		FROM dist_cache WHERE expression = $1`,
		expression,
	).Scan(
		&c.ID, &c.Expression, &c.Masses, &c.Mean, &c.Stdev,
		&c.Min, &c.Max, &c.ComputedAt, &c.Hits,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDistributionNotFound
		}
		return nil, fmt.Errorf("querying distribution: %w", err)
	}
	return &c, nil
}

// Touch increments the hit counter for the given expression.
//
// Precondition: expression must be non-empty.
// Postcondition: Returns nil on success, ErrDistributionNotFound if no row
// was updated.
func (r *DistributionRepository) Touch(ctx context.Context, expression string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE dist_cache SET hits = hits + 1 WHERE expression = $1`,
		expression,
	)
	if err != nil {
		return fmt.Errorf("touching distribution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDistributionNotFound
	}
	return nil
}

// Recent returns up to limit rows ordered by computed_at, newest first.
//
// Precondition: limit must be > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *DistributionRepository) Recent(ctx context.Context, limit int) ([]*CachedDistribution, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, expression, masses, mean, stdev, min_value, max_value,
		       computed_at, hits
		FROM dist_cache ORDER BY computed_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing distributions: %w", err)
	}
	defer rows.Close()

	cached := make([]*CachedDistribution, 0)
	for rows.Next() {
		var c CachedDistribution
		if err := rows.Scan(
			&c.ID, &c.Expression, &c.Masses, &c.Mean, &c.Stdev,
			&c.Min, &c.Max, &c.ComputedAt, &c.Hits,
		); err != nil {
			return nil, fmt.Errorf("scanning distribution row: %w", err)
		}
		cached = append(cached, &c)
	}
	return cached, rows.Err()
}
