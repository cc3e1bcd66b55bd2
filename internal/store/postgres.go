package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/va-pc/buildscout/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies
// it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS pc_builds (
	id           TEXT PRIMARY KEY,
	company      TEXT NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL,
	price        DOUBLE PRECISION NOT NULL,
	cpu          TEXT NOT NULL DEFAULT '',
	gpu          TEXT NOT NULL DEFAULT '',
	ram          TEXT NOT NULL DEFAULT '',
	case_color   TEXT NOT NULL DEFAULT '',
	photo_url    TEXT NOT NULL DEFAULT '',
	vk_url       TEXT NOT NULL DEFAULT '',
	parsed_at    TIMESTAMPTZ NOT NULL,
	is_our_build BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS parse_runs (
	id          TEXT PRIMARY KEY,
	group_ids   TEXT NOT NULL,
	source      TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	parsed      INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_pc_builds_company ON pc_builds(company);
CREATE INDEX IF NOT EXISTS idx_pc_builds_price ON pc_builds(price);
CREATE INDEX IF NOT EXISTS idx_pc_builds_cpu ON pc_builds(cpu);
CREATE INDEX IF NOT EXISTS idx_pc_builds_gpu ON pc_builds(gpu);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const postgresUpsert = `
INSERT INTO pc_builds
	(id, company, title, description, price, cpu, gpu, ram, case_color, photo_url, vk_url, parsed_at, is_our_build)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
	company = EXCLUDED.company,
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	price = EXCLUDED.price,
	cpu = EXCLUDED.cpu,
	gpu = EXCLUDED.gpu,
	ram = EXCLUDED.ram,
	case_color = EXCLUDED.case_color,
	photo_url = EXCLUDED.photo_url,
	vk_url = EXCLUDED.vk_url,
	parsed_at = EXCLUDED.parsed_at,
	is_our_build = EXCLUDED.is_our_build`

func (s *PostgresStore) UpsertBuilds(ctx context.Context, builds []model.Build) (int, error) {
	for _, b := range builds {
		_, err := s.pool.Exec(ctx, postgresUpsert,
			b.ID, b.Company, b.Title, b.Description, b.Price,
			b.CPU, b.GPU, b.RAM, string(b.CaseColor), b.PhotoURL, b.VKURL,
			b.ParsedAt.UTC(), b.IsOurBuild)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: upsert build %s", b.ID)
		}
	}
	return len(builds), nil
}

const postgresBuildColumns = `id, company, title, description, price, cpu, gpu, ram, case_color, photo_url, vk_url, parsed_at, is_our_build`

func (s *PostgresStore) GetBuild(ctx context.Context, id string) (*model.Build, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresBuildColumns+` FROM pc_builds WHERE id = $1`, id)
	b, err := scanPgBuild(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get build %s", id)
	}
	return b, nil
}

func (s *PostgresStore) OurBuilds(ctx context.Context) ([]model.Build, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+postgresBuildColumns+` FROM pc_builds WHERE is_our_build ORDER BY price`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list our builds")
	}
	return collectPgBuilds(rows)
}

func (s *PostgresStore) AllBuilds(ctx context.Context) ([]model.Build, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+postgresBuildColumns+` FROM pc_builds ORDER BY price`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list builds")
	}
	return collectPgBuilds(rows)
}

func (s *PostgresStore) CompareByPrice(ctx context.Context, id string, priceRange float64, limit int) ([]model.Build, error) {
	target, err := s.GetBuild(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+postgresBuildColumns+` FROM pc_builds
		 WHERE price >= $1 AND price <= $2 AND id != $3 AND NOT is_our_build
		 ORDER BY price LIMIT $4`,
		target.Price-priceRange, target.Price+priceRange, target.ID, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: compare by price %s", id)
	}
	return collectPgBuilds(rows)
}

func (s *PostgresStore) CompareBySpecs(ctx context.Context, id string, limit int) ([]model.Build, error) {
	target, err := s.GetBuild(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+postgresBuildColumns+` FROM pc_builds
		 WHERE cpu = $1 AND gpu = $2 AND id != $3 AND NOT is_our_build
		 ORDER BY price LIMIT $4`,
		target.CPU, target.GPU, target.ID, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: compare by specs %s", id)
	}
	return collectPgBuilds(rows)
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_our_build) FROM pc_builds`,
	).Scan(&st.TotalBuilds, &st.OurBuilds)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats counts")
	}
	st.OtherBuilds = st.TotalBuilds - st.OurBuilds

	var last *time.Time
	err = s.pool.QueryRow(ctx, `SELECT MAX(parsed_at) FROM pc_builds`).Scan(&last)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats last update")
	}
	st.LastUpdate = last
	return &st, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *model.ParseRun) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO parse_runs (id, group_ids, source, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, joinGroupIDs(run.GroupIDs), string(run.Source), string(run.Status), run.StartedAt.UTC())
	return eris.Wrapf(err, "postgres: insert run %s", run.ID)
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, parsed int, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE parse_runs SET status = $1, parsed = $2, error = $3, finished_at = $4 WHERE id = $5`,
		string(status), parsed, errMsg, time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func scanPgBuild(row pgx.Row) (*model.Build, error) {
	var (
		b     model.Build
		color string
	)
	err := row.Scan(&b.ID, &b.Company, &b.Title, &b.Description, &b.Price,
		&b.CPU, &b.GPU, &b.RAM, &color, &b.PhotoURL, &b.VKURL, &b.ParsedAt, &b.IsOurBuild)
	if err != nil {
		return nil, err
	}
	b.CaseColor = model.CaseColor(color)
	return &b, nil
}

func collectPgBuilds(rows pgx.Rows) ([]model.Build, error) {
	defer rows.Close()

	var builds []model.Build
	for rows.Next() {
		b, err := scanPgBuild(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan build")
		}
		builds = append(builds, *b)
	}
	return builds, eris.Wrap(rows.Err(), "postgres: iterate builds")
}
