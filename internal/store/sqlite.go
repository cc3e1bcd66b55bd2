package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/va-pc/buildscout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS pc_builds (
	id           TEXT PRIMARY KEY,
	company      TEXT NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL,
	price        REAL NOT NULL,
	cpu          TEXT NOT NULL DEFAULT '',
	gpu          TEXT NOT NULL DEFAULT '',
	ram          TEXT NOT NULL DEFAULT '',
	case_color   TEXT NOT NULL DEFAULT '',
	photo_url    TEXT NOT NULL DEFAULT '',
	vk_url       TEXT NOT NULL DEFAULT '',
	parsed_at    DATETIME NOT NULL,
	is_our_build INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS parse_runs (
	id          TEXT PRIMARY KEY,
	group_ids   TEXT NOT NULL,
	source      TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	parsed      INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_pc_builds_company ON pc_builds(company);
CREATE INDEX IF NOT EXISTS idx_pc_builds_price ON pc_builds(price);
CREATE INDEX IF NOT EXISTS idx_pc_builds_cpu ON pc_builds(cpu);
CREATE INDEX IF NOT EXISTS idx_pc_builds_gpu ON pc_builds(gpu);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpsert = `
INSERT INTO pc_builds
	(id, company, title, description, price, cpu, gpu, ram, case_color, photo_url, vk_url, parsed_at, is_our_build)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	company = excluded.company,
	title = excluded.title,
	description = excluded.description,
	price = excluded.price,
	cpu = excluded.cpu,
	gpu = excluded.gpu,
	ram = excluded.ram,
	case_color = excluded.case_color,
	photo_url = excluded.photo_url,
	vk_url = excluded.vk_url,
	parsed_at = excluded.parsed_at,
	is_our_build = excluded.is_our_build`

func (s *SQLiteStore) UpsertBuilds(ctx context.Context, builds []model.Build) (int, error) {
	if len(builds) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	for _, b := range builds {
		if _, err := stmt.ExecContext(ctx,
			b.ID, b.Company, b.Title, b.Description, b.Price,
			b.CPU, b.GPU, b.RAM, string(b.CaseColor), b.PhotoURL, b.VKURL,
			b.ParsedAt.UTC(), boolToInt(b.IsOurBuild),
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert build %s", b.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	return len(builds), nil
}

const sqliteBuildColumns = `id, company, title, description, price, cpu, gpu, ram, case_color, photo_url, vk_url, parsed_at, is_our_build`

func (s *SQLiteStore) GetBuild(ctx context.Context, id string) (*model.Build, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteBuildColumns+` FROM pc_builds WHERE id = ?`, id)
	b, err := scanBuild(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get build %s", id)
	}
	return b, nil
}

func (s *SQLiteStore) OurBuilds(ctx context.Context) ([]model.Build, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteBuildColumns+` FROM pc_builds WHERE is_our_build = 1 ORDER BY price`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list our builds")
	}
	return collectBuilds(rows)
}

func (s *SQLiteStore) AllBuilds(ctx context.Context) ([]model.Build, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteBuildColumns+` FROM pc_builds ORDER BY price`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list builds")
	}
	return collectBuilds(rows)
}

func (s *SQLiteStore) CompareByPrice(ctx context.Context, id string, priceRange float64, limit int) ([]model.Build, error) {
	target, err := s.GetBuild(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteBuildColumns+` FROM pc_builds
		 WHERE price >= ? AND price <= ? AND id != ? AND is_our_build = 0
		 ORDER BY price LIMIT ?`,
		target.Price-priceRange, target.Price+priceRange, target.ID, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: compare by price %s", id)
	}
	return collectBuilds(rows)
}

func (s *SQLiteStore) CompareBySpecs(ctx context.Context, id string, limit int) ([]model.Build, error) {
	target, err := s.GetBuild(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteBuildColumns+` FROM pc_builds
		 WHERE cpu = ? AND gpu = ? AND id != ? AND is_our_build = 0
		 ORDER BY price LIMIT ?`,
		target.CPU, target.GPU, target.ID, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: compare by specs %s", id)
	}
	return collectBuilds(rows)
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_our_build), 0) FROM pc_builds`,
	).Scan(&st.TotalBuilds, &st.OurBuilds)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats counts")
	}
	st.OtherBuilds = st.TotalBuilds - st.OurBuilds

	var last sql.NullTime
	err = s.db.QueryRowContext(ctx, `SELECT MAX(parsed_at) FROM pc_builds`).Scan(&last)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats last update")
	}
	if last.Valid {
		t := last.Time.UTC()
		st.LastUpdate = &t
	}
	return &st, nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.ParseRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO parse_runs (id, group_ids, source, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, joinGroupIDs(run.GroupIDs), string(run.Source), string(run.Status), run.StartedAt.UTC())
	return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, parsed int, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE parse_runs SET status = ?, parsed = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), parsed, errMsg, time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanBuild.
type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(row scanner) (*model.Build, error) {
	var (
		b     model.Build
		color string
		our   int
	)
	err := row.Scan(&b.ID, &b.Company, &b.Title, &b.Description, &b.Price,
		&b.CPU, &b.GPU, &b.RAM, &color, &b.PhotoURL, &b.VKURL, &b.ParsedAt, &our)
	if err != nil {
		return nil, err
	}
	b.CaseColor = model.CaseColor(color)
	b.IsOurBuild = our != 0
	return &b, nil
}

func collectBuilds(rows *sql.Rows) ([]model.Build, error) {
	defer rows.Close()

	var builds []model.Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan build")
		}
		builds = append(builds, *b)
	}
	return builds, eris.Wrap(rows.Err(), "sqlite: iterate builds")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinGroupIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
