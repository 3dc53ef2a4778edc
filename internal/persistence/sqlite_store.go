package persistence

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MimeLyc/novel-chapter-translator/internal/jobs"
	"github.com/MimeLyc/novel-chapter-translator/internal/library"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore backs both the job scheduler and the chapter library with a
// single sqlite database. One writer connection keeps the conditional-update
// claim protocol serialized.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// ---- jobs.Store ----

const jobColumns = `id, work_id, status, batch_plan_json, total_batches, current_batch_index,
	completed_chapters, failed_chapters, failed_numbers_json,
	retry_count, max_retries, auto_retry_count, max_auto_retries,
	pause_requested, locked_at, locked_by, last_error,
	created_at, updated_at, completed_at`

func (s *SQLiteStore) CreateJob(ctx context.Context, job *jobs.TranslationJob) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	planJSON, err := json.Marshal(job.BatchPlan)
	if err != nil {
		return err
	}
	failedJSON, err := json.Marshal(job.FailedChapterNumbers)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
			id, work_id, status, batch_plan_json, total_batches, current_batch_index,
			completed_chapters, failed_chapters, failed_numbers_json,
			retry_count, max_retries, auto_retry_count, max_auto_retries,
			pause_requested, locked_at, locked_by, last_error, created_at, updated_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, '', ?, ?, ?, NULL)`,
		job.ID,
		job.WorkID,
		string(job.Status),
		string(planJSON),
		job.TotalBatches,
		job.CurrentBatchIndex,
		job.CompletedChapters,
		job.FailedChapters,
		string(failedJSON),
		job.RetryCount,
		job.MaxRetries,
		job.AutoRetryCount,
		job.MaxAutoRetries,
		boolToInt(job.IsPauseRequested),
		job.LastError,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*jobs.TranslationJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, jobID)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

func (s *SQLiteStore) HasActiveJob(ctx context.Context, workID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM jobs WHERE work_id = ? AND status IN ('PENDING', 'IN_PROGRESS', 'PAUSED')`,
		workID,
	).Scan(&count)
	return count > 0, err
}

// ClaimNextJob stamps the lease on the oldest claimable job. The UPDATE
// re-checks the claim condition, so a concurrent claimer that lost the race
// sees zero rows affected and reports no candidate.
func (s *SQLiteStore) ClaimNextJob(ctx context.Context, owner string, staleCutoff time.Time) (*jobs.TranslationJob, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id FROM jobs
		 WHERE status IN ('PENDING', 'IN_PROGRESS')
		   AND (locked_at IS NULL OR locked_at < ?)
		 ORDER BY created_at ASC
		 LIMIT 1`,
		staleCutoff.UTC(),
	)
	var jobID string
	if err := row.Scan(&jobID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET locked_at = ?, locked_by = ?, updated_at = ?
		 WHERE id = ?
		   AND status IN ('PENDING', 'IN_PROGRESS')
		   AND (locked_at IS NULL OR locked_at < ?)`,
		time.Now().UTC(),
		owner,
		time.Now().UTC(),
		jobID,
		staleCutoff.UTC(),
	)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetJob(ctx, jobID)
}

func (s *SQLiteStore) ReleaseJobLease(ctx context.Context, jobID, owner string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET locked_at = NULL, locked_by = '', updated_at = ?
		 WHERE id = ? AND locked_by = ?`,
		time.Now().UTC(),
		jobID,
		owner,
	)
	return err
}

func (s *SQLiteStore) TransitionJobStatus(ctx context.Context, jobID string, from []jobs.Status, to jobs.Status) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("from statuses required")
	}
	placeholders := make([]string, len(from))
	args := []any{string(to), time.Now().UTC()}
	if to.Terminal() {
		args = append(args, time.Now().UTC())
	}
	args = append(args, jobID)
	for i, st := range from {
		placeholders[i] = "?"
		args = append(args, string(st))
	}
	completedClause := ""
	if to.Terminal() {
		completedClause = ", completed_at = ?"
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, updated_at = ?`+completedClause+`
		 WHERE id = ? AND status IN (`+strings.Join(placeholders, ", ")+`)`,
		args...,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

func (s *SQLiteStore) SaveJobProgress(ctx context.Context, job *jobs.TranslationJob) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	planJSON, err := json.Marshal(job.BatchPlan)
	if err != nil {
		return err
	}
	failedJSON, err := json.Marshal(job.FailedChapterNumbers)
	if err != nil {
		return err
	}
	job.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE jobs SET
			batch_plan_json = ?,
			total_batches = ?,
			current_batch_index = ?,
			completed_chapters = ?,
			failed_chapters = ?,
			failed_numbers_json = ?,
			retry_count = ?,
			auto_retry_count = ?,
			last_error = ?,
			updated_at = ?
		 WHERE id = ?`,
		string(planJSON),
		job.TotalBatches,
		job.CurrentBatchIndex,
		job.CompletedChapters,
		job.FailedChapters,
		string(failedJSON),
		job.RetryCount,
		job.AutoRetryCount,
		job.LastError,
		job.UpdatedAt,
		job.ID,
	)
	return err
}

func (s *SQLiteStore) RequestPause(ctx context.Context, jobID string) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET pause_requested = 1, updated_at = ?
		 WHERE id = ? AND status IN ('PENDING', 'IN_PROGRESS')`,
		time.Now().UTC(),
		jobID,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

func (s *SQLiteStore) ClearPauseFlag(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET pause_requested = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC(),
		jobID,
	)
	return err
}

func (s *SQLiteStore) CancelJob(ctx context.Context, jobID string) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = 'CANCELLED', completed_at = ?, updated_at = ?
		 WHERE id = ? AND status IN ('PENDING', 'IN_PROGRESS', 'PAUSED')`,
		time.Now().UTC(),
		time.Now().UTC(),
		jobID,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

// ResumeJob flips a paused job back to PENDING and clears the pause flag.
func (s *SQLiteStore) ResumeJob(ctx context.Context, jobID string) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = 'PENDING', pause_requested = 0, updated_at = ?
		 WHERE id = ? AND status = 'PAUSED'`,
		time.Now().UTC(),
		jobID,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*jobs.TranslationJob, error) {
	var job jobs.TranslationJob
	var status, planJSON, failedJSON string
	var pauseRequested int
	var lockedAt, completedAt sql.NullTime
	if err := row.Scan(
		&job.ID,
		&job.WorkID,
		&status,
		&planJSON,
		&job.TotalBatches,
		&job.CurrentBatchIndex,
		&job.CompletedChapters,
		&job.FailedChapters,
		&failedJSON,
		&job.RetryCount,
		&job.MaxRetries,
		&job.AutoRetryCount,
		&job.MaxAutoRetries,
		&pauseRequested,
		&lockedAt,
		&job.LockedBy,
		&job.LastError,
		&job.CreatedAt,
		&job.UpdatedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}
	job.Status = jobs.Status(status)
	job.IsPauseRequested = pauseRequested == 1
	if lockedAt.Valid {
		t := lockedAt.Time
		job.LockedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(planJSON), &job.BatchPlan); err != nil {
		return nil, fmt.Errorf("decode batch plan for job %s: %w", job.ID, err)
	}
	if err := json.Unmarshal([]byte(failedJSON), &job.FailedChapterNumbers); err != nil {
		return nil, fmt.Errorf("decode failed chapters for job %s: %w", job.ID, err)
	}
	return &job, nil
}

// ---- chapters ----

const chapterColumns = `id, work_id, number, title, original_content, translated_content,
	translated_title, status, snapshot_json, created_at, updated_at`

// ClaimChapter moves a chapter into TRANSLATING. The condition admits
// chapters already in TRANSLATING so a crashed run can be taken over once the
// owning job's lease went stale.
func (s *SQLiteStore) ClaimChapter(ctx context.Context, workID string, number int) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE chapters SET status = 'TRANSLATING', updated_at = ?
		 WHERE work_id = ? AND number = ? AND status IN ('PENDING', 'TRANSLATING')`,
		time.Now().UTC(),
		workID,
		number,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

// RevertChapter returns a failed chapter to PENDING. The status guard keeps
// it from demoting a chapter another worker already finished.
func (s *SQLiteStore) RevertChapter(ctx context.Context, workID string, number int) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE chapters SET status = 'PENDING', updated_at = ?
		 WHERE work_id = ? AND number = ? AND status = 'TRANSLATING'`,
		time.Now().UTC(),
		workID,
		number,
	)
	return err
}

// CompleteChapter stores the final translation and clears any snapshot in the
// same statement.
func (s *SQLiteStore) CompleteChapter(ctx context.Context, workID string, number int, content, title string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE chapters SET
			status = 'TRANSLATED',
			translated_content = ?,
			translated_title = ?,
			snapshot_json = '',
			updated_at = ?
		 WHERE work_id = ? AND number = ?`,
		content,
		title,
		time.Now().UTC(),
		workID,
		number,
	)
	return err
}

func (s *SQLiteStore) SaveChapterSnapshot(ctx context.Context, workID string, number int, snapshot library.ProgressSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE chapters SET snapshot_json = ?, updated_at = ? WHERE work_id = ? AND number = ?`,
		string(payload),
		time.Now().UTC(),
		workID,
		number,
	)
	return err
}

func (s *SQLiteStore) ClearChapterSnapshot(ctx context.Context, workID string, number int) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE chapters SET snapshot_json = '', updated_at = ? WHERE work_id = ? AND number = ?`,
		time.Now().UTC(),
		workID,
		number,
	)
	return err
}

func (s *SQLiteStore) GetChapterByNumber(ctx context.Context, workID string, number int) (*library.Chapter, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE work_id = ? AND number = ?`,
		workID,
		number,
	)
	chapter, err := scanChapter(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return chapter, err
}

// ListTranslatingWithSnapshot finds chapters a previous run left mid-flight.
// The scheduler pushes these to the front of the next tick.
func (s *SQLiteStore) ListTranslatingWithSnapshot(ctx context.Context, workID string) ([]*library.Chapter, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+chapterColumns+` FROM chapters
		 WHERE work_id = ? AND status = 'TRANSLATING' AND snapshot_json != ''
		 ORDER BY number ASC`,
		workID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]*library.Chapter, 0)
	for rows.Next() {
		chapter, err := scanChapter(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, chapter)
	}
	return ret, rows.Err()
}

func (s *SQLiteStore) CountChaptersByNumbers(ctx context.Context, workID string, numbers []int) (int, error) {
	if len(numbers) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(numbers))
	args := []any{workID}
	for i, n := range numbers {
		placeholders[i] = "?"
		args = append(args, n)
	}
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM chapters WHERE work_id = ? AND number IN (`+strings.Join(placeholders, ", ")+`)`,
		args...,
	).Scan(&count)
	return count, err
}

func scanChapter(row rowScanner) (*library.Chapter, error) {
	var chapter library.Chapter
	var status, snapshotJSON string
	if err := row.Scan(
		&chapter.ID,
		&chapter.WorkID,
		&chapter.Number,
		&chapter.Title,
		&chapter.OriginalContent,
		&chapter.TranslatedContent,
		&chapter.TranslatedTitle,
		&status,
		&snapshotJSON,
		&chapter.CreatedAt,
		&chapter.UpdatedAt,
	); err != nil {
		return nil, err
	}
	chapter.Status = library.ChapterStatus(status)
	if snapshotJSON != "" {
		if err := json.Unmarshal([]byte(snapshotJSON), &chapter.Snapshot); err != nil {
			return nil, fmt.Errorf("decode snapshot for chapter %s/%d: %w", chapter.WorkID, chapter.Number, err)
		}
	}
	return &chapter, nil
}

// ---- works, glossary, characters ----

func (s *SQLiteStore) GetWork(ctx context.Context, workID string) (*library.Work, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, title, genres_json, age_rating, synopsis, translation_guide, source_language
		 FROM works WHERE id = ?`,
		workID,
	)
	var work library.Work
	var genresJSON string
	if err := row.Scan(
		&work.ID,
		&work.Title,
		&genresJSON,
		&work.AgeRating,
		&work.Synopsis,
		&work.TranslationGuide,
		&work.SourceLanguage,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(genresJSON), &work.Genres); err != nil {
		return nil, fmt.Errorf("decode genres for work %s: %w", work.ID, err)
	}
	return &work, nil
}

func (s *SQLiteStore) ListGlossary(ctx context.Context, workID string) ([]library.GlossaryEntry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT original, translated, note FROM glossary_entries WHERE work_id = ? ORDER BY original ASC`,
		workID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]library.GlossaryEntry, 0)
	for rows.Next() {
		var e library.GlossaryEntry
		if err := rows.Scan(&e.Original, &e.Translated, &e.Note); err != nil {
			return nil, err
		}
		ret = append(ret, e)
	}
	return ret, rows.Err()
}

func (s *SQLiteStore) ListCharacters(ctx context.Context, workID string) ([]library.CharacterEntry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT name_original, name_translated, role, speech_style, personality
		 FROM character_entries WHERE work_id = ? ORDER BY name_original ASC`,
		workID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]library.CharacterEntry, 0)
	for rows.Next() {
		var c library.CharacterEntry
		if err := rows.Scan(&c.NameOriginal, &c.NameTranslated, &c.Role, &c.SpeechStyle, &c.Personality); err != nil {
			return nil, err
		}
		ret = append(ret, c)
	}
	return ret, rows.Err()
}

func (s *SQLiteStore) UpsertWork(ctx context.Context, work *library.Work) error {
	if work == nil {
		return fmt.Errorf("work is nil")
	}
	genresJSON, err := json.Marshal(work.Genres)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO works (id, title, genres_json, age_rating, synopsis, translation_guide, source_language, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title,
			genres_json=excluded.genres_json,
			age_rating=excluded.age_rating,
			synopsis=excluded.synopsis,
			translation_guide=excluded.translation_guide,
			source_language=excluded.source_language,
			updated_at=excluded.updated_at`,
		work.ID,
		work.Title,
		string(genresJSON),
		work.AgeRating,
		work.Synopsis,
		work.TranslationGuide,
		work.SourceLanguage,
		time.Now().UTC(),
	)
	return err
}

func (s *SQLiteStore) UpsertChapter(ctx context.Context, chapter *library.Chapter) error {
	if chapter == nil {
		return fmt.Errorf("chapter is nil")
	}
	snapshotJSON := ""
	if chapter.Snapshot.InProgress {
		payload, err := json.Marshal(chapter.Snapshot)
		if err != nil {
			return err
		}
		snapshotJSON = string(payload)
	}
	now := time.Now().UTC()
	if chapter.CreatedAt.IsZero() {
		chapter.CreatedAt = now
	}
	chapter.UpdatedAt = now
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO chapters (
			id, work_id, number, title, original_content, translated_content,
			translated_title, status, snapshot_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(work_id, number) DO UPDATE SET
			title=excluded.title,
			original_content=excluded.original_content,
			translated_content=excluded.translated_content,
			translated_title=excluded.translated_title,
			status=excluded.status,
			snapshot_json=excluded.snapshot_json,
			updated_at=excluded.updated_at`,
		chapter.ID,
		chapter.WorkID,
		chapter.Number,
		chapter.Title,
		chapter.OriginalContent,
		chapter.TranslatedContent,
		chapter.TranslatedTitle,
		string(chapter.Status),
		snapshotJSON,
		chapter.CreatedAt,
		chapter.UpdatedAt,
	)
	return err
}

func (s *SQLiteStore) UpsertGlossaryEntry(ctx context.Context, workID string, entry library.GlossaryEntry) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO glossary_entries (work_id, original, translated, note)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(work_id, original) DO UPDATE SET
			translated=excluded.translated,
			note=excluded.note`,
		workID,
		entry.Original,
		entry.Translated,
		entry.Note,
	)
	return err
}

func (s *SQLiteStore) UpsertCharacterEntry(ctx context.Context, workID string, entry library.CharacterEntry) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO character_entries (work_id, name_original, name_translated, role, speech_style, personality)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(work_id, name_original) DO UPDATE SET
			name_translated=excluded.name_translated,
			role=excluded.role,
			speech_style=excluded.speech_style,
			personality=excluded.personality`,
		workID,
		entry.NameOriginal,
		entry.NameTranslated,
		entry.Role,
		entry.SpeechStyle,
		entry.Personality,
	)
	return err
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
