package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore implements Store on database/sql with the sqlite3 driver.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// SQLiteDSN returns a DSN for path with foreign keys, WAL, a busy timeout and
// immediate transactions, so concurrent writers queue instead of deadlocking.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
}

// OpenSQLite opens (and migrates) the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	s, err := NewSQLiteStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps db and applies the embedded migrations.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	if err := runMigrations(ctx, db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func wrap(op string, err error) error {
	return models.Persistence("sqlite: "+op, err)
}

// inTx runs fn inside a transaction and commits when fn returns nil.
func (s *SQLiteStore) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(op, err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return wrap(op, err)
	}
	return wrap(op, tx.Commit())
}

func (s *SQLiteStore) RequestAccess(ctx context.Context, u models.User) (models.AccessStatus, error) {
	var status models.AccessStatus
	err := s.inTx(ctx, "request access", func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE user_id = ?`, u.UserID).Scan(&one)
		switch {
		case err == nil:
			status = models.AccessAlreadyApproved
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		err = tx.QueryRowContext(ctx, `SELECT 1 FROM pending_users WHERE user_id = ?`, u.UserID).Scan(&one)
		switch {
		case err == nil:
			status = models.AccessAlreadyPending
		case errors.Is(err, sql.ErrNoRows):
			status = models.AccessQueued
		default:
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO pending_users (user_id, username, first_name, last_name, request_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_id) DO UPDATE SET
				username = excluded.username,
				first_name = excluded.first_name,
				last_name = excluded.last_name,
				request_at = excluded.request_at`,
			u.UserID, u.Username, u.FirstName, u.LastName, toMillis(u.Since))
		return err
	})
	return status, err
}

func (s *SQLiteStore) listUsers(ctx context.Context, op, query string) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		var (
			u  models.User
			at int64
		)
		if err := rows.Scan(&u.UserID, &u.Username, &u.FirstName, &u.LastName, &at); err != nil {
			return nil, wrap(op, err)
		}
		u.Since = fromMillis(at)
		out = append(out, u)
	}
	return out, wrap(op, rows.Err())
}

func (s *SQLiteStore) ListPending(ctx context.Context) ([]models.User, error) {
	return s.listUsers(ctx, "list pending",
		`SELECT user_id, username, first_name, last_name, request_at FROM pending_users ORDER BY request_at, user_id`)
}

func (s *SQLiteStore) ListApproved(ctx context.Context) ([]models.User, error) {
	return s.listUsers(ctx, "list approved",
		`SELECT user_id, username, first_name, last_name, joined_at FROM users ORDER BY user_id`)
}

func (s *SQLiteStore) exists(ctx context.Context, op, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	}
	return false, wrap(op, err)
}

func (s *SQLiteStore) IsPending(ctx context.Context, userID int64) (bool, error) {
	return s.exists(ctx, "is pending", `SELECT 1 FROM pending_users WHERE user_id = ?`, userID)
}

func (s *SQLiteStore) IsApproved(ctx context.Context, userID int64) (bool, error) {
	return s.exists(ctx, "is approved", `SELECT 1 FROM users WHERE user_id = ?`, userID)
}

func (s *SQLiteStore) ApprovePending(ctx context.Context, userID int64, at time.Time) (models.User, error) {
	u := models.User{UserID: userID, Since: at.UTC()}
	err := s.inTx(ctx, "approve", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT username, first_name, last_name FROM pending_users WHERE user_id = ?`, userID).
			Scan(&u.Username, &u.FirstName, &u.LastName)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (user_id, username, first_name, last_name, joined_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_id) DO UPDATE SET
				username = excluded.username,
				first_name = excluded.first_name,
				last_name = excluded.last_name,
				joined_at = excluded.joined_at`,
			u.UserID, u.Username, u.FirstName, u.LastName, toMillis(at)); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM pending_users WHERE user_id = ?`, userID)
		return err
	})
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (s *SQLiteStore) execAffected(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap(op, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) DeletePending(ctx context.Context, userID int64) (bool, error) {
	return s.execAffected(ctx, "delete pending", `DELETE FROM pending_users WHERE user_id = ?`, userID)
}

func (s *SQLiteStore) DeleteApproved(ctx context.Context, userID int64) (bool, error) {
	return s.execAffected(ctx, "delete approved", `DELETE FROM users WHERE user_id = ?`, userID)
}

func (s *SQLiteStore) CreateSurvey(ctx context.Context, startedAt, deadlineAt time.Time) (models.Survey, []int64, error) {
	sv := models.Survey{StartedAt: startedAt.UTC(), DeadlineAt: deadlineAt.UTC(), Active: true}
	var enrolled []int64
	err := s.inTx(ctx, "create survey", func(tx *sql.Tx) error {
		var active int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM surveys WHERE active = 1`).Scan(&active); err != nil {
			return err
		}
		if active > 0 {
			return models.ErrAlreadyActive
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO surveys (started_at, deadline_at, active) VALUES (?, ?, 1)`,
			toMillis(startedAt), toMillis(deadlineAt))
		if isUniqueViolation(err) {
			return models.ErrAlreadyActive
		}
		if err != nil {
			return err
		}
		if sv.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_responses (survey_id, user_id, has_responded, reminded)
			SELECT ?, user_id, 0, 0 FROM users`, sv.ID); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx, `SELECT user_id FROM user_responses WHERE survey_id = ? ORDER BY user_id`, sv.ID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			enrolled = append(enrolled, id)
		}
		return rows.Err()
	})
	if err != nil {
		return models.Survey{}, nil, err
	}
	return sv, enrolled, nil
}

func scanSurvey(row *sql.Row) (models.Survey, error) {
	var (
		sv                models.Survey
		started, deadline int64
		active            int
	)
	if err := row.Scan(&sv.ID, &started, &deadline, &active); err != nil {
		return models.Survey{}, err
	}
	sv.StartedAt = fromMillis(started)
	sv.DeadlineAt = fromMillis(deadline)
	sv.Active = active == 1
	return sv, nil
}

func (s *SQLiteStore) ActiveSurvey(ctx context.Context) (models.Survey, error) {
	sv, err := scanSurvey(s.db.QueryRowContext(ctx,
		`SELECT id, started_at, deadline_at, active FROM surveys WHERE active = 1 ORDER BY started_at DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Survey{}, models.ErrNoActiveSurvey
	}
	return sv, wrap("active survey", err)
}

func (s *SQLiteStore) GetSurvey(ctx context.Context, id int64) (models.Survey, error) {
	sv, err := scanSurvey(s.db.QueryRowContext(ctx,
		`SELECT id, started_at, deadline_at, active FROM surveys WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Survey{}, models.ErrNotFound
	}
	return sv, wrap("get survey", err)
}

func (s *SQLiteStore) CloseSurvey(ctx context.Context, id int64) (bool, error) {
	closed, err := s.execAffected(ctx, "close survey", `UPDATE surveys SET active = 0 WHERE id = ? AND active = 1`, id)
	if err != nil || closed {
		return closed, err
	}
	found, err := s.exists(ctx, "close survey", `SELECT 1 FROM surveys WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	if !found {
		return false, models.ErrNotFound
	}
	return false, nil
}

func (s *SQLiteStore) EnsureTracker(ctx context.Context, surveyID, userID int64) (bool, error) {
	return s.execAffected(ctx, "ensure tracker", `
		INSERT INTO user_responses (survey_id, user_id, has_responded, reminded)
		VALUES (?, ?, 0, 0)
		ON CONFLICT (survey_id, user_id) DO NOTHING`, surveyID, userID)
}

func (s *SQLiteStore) GetTracker(ctx context.Context, surveyID, userID int64) (models.ResponseTracker, error) {
	t := models.ResponseTracker{SurveyID: surveyID, UserID: userID}
	var responded, reminded int
	err := s.db.QueryRowContext(ctx,
		`SELECT has_responded, reminded FROM user_responses WHERE survey_id = ? AND user_id = ?`,
		surveyID, userID).Scan(&responded, &reminded)
	if errors.Is(err, sql.ErrNoRows) {
		return t, models.ErrNotFound
	}
	if err != nil {
		return t, wrap("get tracker", err)
	}
	t.HasResponded = responded == 1
	t.Reminded = reminded == 1
	return t, nil
}

func (s *SQLiteStore) ListReminderTargets(ctx context.Context, surveyID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM user_responses
		WHERE survey_id = ? AND has_responded = 0 AND reminded = 0
		  AND user_id IN (SELECT user_id FROM users)
		ORDER BY user_id`, surveyID)
	if err != nil {
		return nil, wrap("reminder targets", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, wrap("reminder targets", err)
		}
		ids = append(ids, id)
	}
	return ids, wrap("reminder targets", rows.Err())
}

func (s *SQLiteStore) MarkReminded(ctx context.Context, surveyID, userID int64) (bool, error) {
	return s.execAffected(ctx, "mark reminded",
		`UPDATE user_responses SET reminded = 1 WHERE survey_id = ? AND user_id = ? AND reminded = 0`,
		surveyID, userID)
}

func (s *SQLiteStore) SaveResponse(ctx context.Context, userID int64, r models.Rating, fb *models.Feedback) error {
	if err := checkRating(r); err != nil {
		return err
	}
	return s.inTx(ctx, "save response", func(tx *sql.Tx) error {
		var active int
		err := tx.QueryRowContext(ctx, `SELECT active FROM surveys WHERE id = ?`, r.SurveyID).Scan(&active)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return err
		}
		if active != 1 {
			return models.ErrNoActiveSurvey
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO user_responses (survey_id, user_id, has_responded, reminded)
			VALUES (?, ?, 1, 0)
			ON CONFLICT (survey_id, user_id) DO UPDATE SET has_responded = 1
			WHERE user_responses.has_responded = 0`, r.SurveyID, userID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return models.ErrAlreadyResponded
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ratings (survey_id, interest, relevance, spiritual_growth, attended, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.SurveyID, r.Interest, r.Relevance, r.SpiritualGrowth, boolToInt(r.Attended), toMillis(r.CreatedAt)); err != nil {
			return err
		}
		if fb == nil {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO feedback (survey_id, text, created_at) VALUES (?, ?, ?)`,
			fb.SurveyID, fb.Text, toMillis(fb.CreatedAt))
		return err
	})
}

func (s *SQLiteStore) SurveyStats(ctx context.Context, surveyID int64) (models.SurveyStats, error) {
	st := models.SurveyStats{SurveyID: surveyID, Feedbacks: []models.FeedbackItem{}}
	if _, err := s.GetSurvey(ctx, surveyID); err != nil {
		return st, err
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(AVG(CASE WHEN attended = 1 THEN interest END), 0),
			COALESCE(AVG(CASE WHEN attended = 1 THEN relevance END), 0),
			COALESCE(AVG(CASE WHEN attended = 1 THEN spiritual_growth END), 0),
			COUNT(CASE WHEN attended = 1 THEN 1 END),
			COUNT(CASE WHEN attended = 0 THEN 1 END)
		FROM ratings WHERE survey_id = ?`, surveyID).
		Scan(&st.AvgInterest, &st.AvgRelevance, &st.AvgSpiritualGrowth, &st.TotalAttended, &st.NotAttended)
	if err != nil {
		return st, wrap("survey stats", err)
	}

	fbs, err := s.ListFeedback(ctx, surveyID)
	if err != nil {
		return st, err
	}
	for _, fb := range fbs {
		st.Feedbacks = append(st.Feedbacks, models.FeedbackItem{Text: fb.Text, CreatedAt: fb.CreatedAt})
	}
	return st, nil
}

func (s *SQLiteStore) PeriodStats(ctx context.Context, since time.Time) ([]models.PeriodStat, error) {
	from := int64(math.MinInt64)
	if !since.IsZero() {
		from = toMillis(since)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			s.id,
			s.started_at,
			COALESCE(AVG(CASE WHEN r.attended = 1 THEN r.interest END), 0),
			COALESCE(AVG(CASE WHEN r.attended = 1 THEN r.relevance END), 0),
			COALESCE(AVG(CASE WHEN r.attended = 1 THEN r.spiritual_growth END), 0),
			COUNT(CASE WHEN r.attended = 1 THEN 1 END),
			COUNT(CASE WHEN r.attended = 0 THEN 1 END)
		FROM surveys s
		LEFT JOIN ratings r ON r.survey_id = s.id
		WHERE s.active = 0 AND s.started_at >= ?
		GROUP BY s.id, s.started_at
		ORDER BY s.started_at, s.id`, from)
	if err != nil {
		return nil, wrap("period stats", err)
	}
	defer rows.Close()

	var out []models.PeriodStat
	for rows.Next() {
		var (
			ps      models.PeriodStat
			started int64
		)
		if err := rows.Scan(&ps.SurveyID, &started, &ps.AvgInterest, &ps.AvgRelevance,
			&ps.AvgSpiritualGrowth, &ps.AttendedCount, &ps.NotAttendedCount); err != nil {
			return nil, wrap("period stats", err)
		}
		ps.StartedAt = fromMillis(started)
		out = append(out, ps)
	}
	return out, wrap("period stats", rows.Err())
}

func (s *SQLiteStore) ListRatings(ctx context.Context, surveyID int64) ([]models.Rating, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT interest, relevance, spiritual_growth, attended, created_at
		FROM ratings WHERE survey_id = ? ORDER BY created_at, id`, surveyID)
	if err != nil {
		return nil, wrap("list ratings", err)
	}
	defer rows.Close()

	var out []models.Rating
	for rows.Next() {
		var (
			r        models.Rating
			attended int
			at       int64
		)
		if err := rows.Scan(&r.Interest, &r.Relevance, &r.SpiritualGrowth, &attended, &at); err != nil {
			return nil, wrap("list ratings", err)
		}
		r.SurveyID = surveyID
		r.Attended = attended == 1
		r.CreatedAt = fromMillis(at)
		out = append(out, r)
	}
	return out, wrap("list ratings", rows.Err())
}

func (s *SQLiteStore) ListFeedback(ctx context.Context, surveyID int64) ([]models.Feedback, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT text, created_at FROM feedback WHERE survey_id = ? ORDER BY created_at, id`, surveyID)
	if err != nil {
		return nil, wrap("list feedback", err)
	}
	defer rows.Close()

	var out []models.Feedback
	for rows.Next() {
		var (
			fb models.Feedback
			at int64
		)
		if err := rows.Scan(&fb.Text, &at); err != nil {
			return nil, wrap("list feedback", err)
		}
		fb.SurveyID = surveyID
		fb.CreatedAt = fromMillis(at)
		out = append(out, fb)
	}
	return out, wrap("list feedback", rows.Err())
}
