package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- API Keys ---

const apiKeyColumns = `id, name, key_hash, key_prefix, scopes, last_used_at, revoked_at, created_at, updated_at`

// GetAPIKeyByPrefix returns the active keys sharing prefix. Prefixes are not
// unique, so callers compare hashes.
func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+`
		 FROM api_keys WHERE key_prefix = $1 AND revoked_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	return scanAPIKeys(rows)
}

// ListAPIKeys returns every key, revoked ones included, newest first.
func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return scanAPIKeys(rows)
}

// RevokeAPIKey marks an active key revoked. Unknown or already revoked keys
// return ErrNotFound.
func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET revoked_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAPIKeys(rows pgx.Rows) ([]*models.APIKey, error) {
	defer rows.Close()

	keys := []*models.APIKey{}
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.RevokedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// --- Job Postings ---

const jobColumns = `id, title, company, location, salary, description, posted, remote, link,
	easy_apply, company_logo, job_type, skills`

func (s *PostgresStore) SearchJobs(ctx context.Context, filter JobFilter) ([]models.JobSearchResult, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM job_postings
		 WHERE $1 = '' OR title ILIKE '%' || $1 || '%'
		 ORDER BY id LIMIT $2`, filter.Title, limit)
	if err != nil {
		return nil, fmt.Errorf("search jobs: %w", err)
	}
	return collectJobs(rows)
}

// GetJobsByIDs returns the postings for ids in the order requested. Unknown ids are skipped.
func (s *PostgresStore) GetJobsByIDs(ctx context.Context, ids []int64) ([]models.JobSearchResult, error) {
	if len(ids) == 0 {
		return []models.JobSearchResult{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM job_postings WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get jobs by ids: %w", err)
	}
	found, err := collectJobs(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]models.JobSearchResult, len(found))
	for _, j := range found {
		byID[j.ID] = j
	}
	jobs := make([]models.JobSearchResult, 0, len(ids))
	for _, id := range ids {
		if j, ok := byID[id]; ok {
			jobs = append(jobs, j)
		}
	}
	return jobs, nil
}

func collectJobs(rows pgx.Rows) ([]models.JobSearchResult, error) {
	defer rows.Close()

	jobs := []models.JobSearchResult{}
	for rows.Next() {
		var j models.JobSearchResult
		if err := rows.Scan(&j.ID, &j.Title, &j.Company, &j.Location, &j.Salary, &j.Description,
			&j.Posted, &j.Remote, &j.Link, &j.EasyApply, &j.CompanyLogo, &j.JobType, &j.Skills); err != nil {
			return nil, fmt.Errorf("scan job posting: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// --- Applications ---

func (s *PostgresStore) CreateApplication(ctx context.Context, jobID int64, candidate *models.CandidateData) (*models.ApplicationStatus, error) {
	a := models.ApplicationStatus{JobID: jobID, Status: models.ApplicationPending, Logs: []string{}}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO applications (job_id, status, candidate)
		 VALUES ($1, $2, $3)
		 RETURNING id, updated_at`,
		jobID, string(models.ApplicationPending), candidate,
	).Scan(&a.ID, &a.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("create application: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) GetApplication(ctx context.Context, id int64) (*models.ApplicationStatus, error) {
	var a models.ApplicationStatus
	err := s.pool.QueryRow(ctx,
		`SELECT id, job_id, status, logs, updated_at FROM applications WHERE id = $1`, id,
	).Scan(&a.ID, &a.JobID, &a.Status, &a.Logs, &a.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	return &a, nil
}

var validTransitions = map[models.ApplicationState][]models.ApplicationState{
	models.ApplicationPending:    {models.ApplicationInProgress, models.ApplicationFailed},
	models.ApplicationInProgress: {models.ApplicationCompleted, models.ApplicationFailed},
}

func (s *PostgresStore) UpdateApplicationStatus(ctx context.Context, id int64, status models.ApplicationState, opts ...ApplicationUpdateOption) error {
	params := NewApplicationUpdate(opts...)

	var current models.ApplicationState
	err := s.pool.QueryRow(ctx, `SELECT status FROM applications WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get application status: %w", err)
	}

	if !slices.Contains(validTransitions[current], status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}

	query := `UPDATE applications SET status = $2, updated_at = $3`
	args := []any{id, string(status), time.Now().UTC()}
	if params.Logs != nil {
		query += ", logs = $4"
		args = append(args, params.Logs)
	}
	// Guard against a concurrent update that moved the row since the read.
	query += fmt.Sprintf(" WHERE id = $1 AND status = $%d", len(args)+1)
	args = append(args, string(current))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, current)
	}
	return nil
}

// --- Automation Runs ---

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.AutomationRun) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO automation_runs (id, job_title, status, jobs_total, jobs_completed, jobs_failed, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.JobTitle, string(run.Status), run.JobsTotal, run.JobsCompleted, run.JobsFailed, run.StartedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create automation run: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *models.AutomationRun) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE automation_runs
		 SET status = $2, jobs_total = $3, jobs_completed = $4, jobs_failed = $5, finished_at = $6
		 WHERE id = $1`,
		run.ID, string(run.Status), run.JobsTotal, run.JobsCompleted, run.JobsFailed, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("update automation run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Automation Logs ---

func (s *PostgresStore) AppendRunLog(ctx context.Context, runID uuid.UUID, typ models.LogType, message string) (*models.AutomationLog, error) {
	l := models.AutomationLog{Type: typ, Message: message}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO automation_logs (run_id, type, message)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		runID, string(typ), message,
	).Scan(&l.ID, &l.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("append automation log: %w", err)
	}
	return &l, nil
}

// ListRunLogs returns the run's logs with id greater than afterID, in id order.
func (s *PostgresStore) ListRunLogs(ctx context.Context, runID uuid.UUID, afterID int64) ([]models.AutomationLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, type, message, created_at FROM automation_logs
		 WHERE run_id = $1 AND id > $2 ORDER BY id`, runID, afterID)
	if err != nil {
		return nil, fmt.Errorf("list automation logs: %w", err)
	}
	defer rows.Close()

	logs := []models.AutomationLog{}
	for rows.Next() {
		var l models.AutomationLog
		if err := rows.Scan(&l.ID, &l.Type, &l.Message, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("scan automation log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
