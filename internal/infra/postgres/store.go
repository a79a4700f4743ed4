package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/domain"
)

var _ app.Store = (*Store)(nil)

// Store persists quizzes, questions, answers and users in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool for dsn.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapErr translates driver errors into domain error kinds.
func mapErr(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, domain.ErrDuplicateKey)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, notFound)
		}
	}
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// Quizzes

const quizColumns = `id, name, description, scheduled_at, status, created_at, updated_at`

func scanQuiz(row rowScanner) (domain.Quiz, error) {
	var q domain.Quiz
	var status string
	if err := row.Scan(&q.ID, &q.Name, &q.Description, &q.ScheduledAt, &status, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return domain.Quiz{}, err
	}
	q.Status = domain.QuizStatus(status)
	return q, nil
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quizzes (id, name, description, scheduled_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		quiz.ID, quiz.Name, quiz.Description, quiz.ScheduledAt, string(quiz.Status), nonZero(quiz.CreatedAt), nonZero(quiz.UpdatedAt))
	return mapErr(err, domain.ErrQuizNotFound)
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	q, err := scanQuiz(s.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, quizID))
	return q, mapErr(err, domain.ErrQuizNotFound)
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) UpdateQuizStatus(ctx context.Context, quizID string, status domain.QuizStatus, now time.Time) (domain.Quiz, error) {
	q, err := scanQuiz(s.pool.QueryRow(ctx, `
		UPDATE quizzes SET status = $2, updated_at = $3 WHERE id = $1
		RETURNING `+quizColumns, quizID, string(status), now))
	return q, mapErr(err, domain.ErrQuizNotFound)
}

// Questions

const questionColumns = `id, quiz_id, question_type, question_content, question_content_metadata,
	correct_answer_hero, answer_image_url, time_limit_seconds, order_index, status, is_active,
	started_at, ended_at, created_at`

func scanQuestion(row rowScanner) (domain.Question, error) {
	var q domain.Question
	var qType, status string
	var meta []byte
	if err := row.Scan(&q.ID, &q.QuizID, &qType, &q.Content, &meta, &q.CorrectAnswerHero, &q.AnswerImageURL,
		&q.TimeLimitSeconds, &q.OrderIndex, &status, &q.IsActive, &q.StartedAt, &q.EndedAt, &q.CreatedAt); err != nil {
		return domain.Question{}, err
	}
	q.Type = domain.QuestionType(qType)
	q.Status = domain.QuestionStatus(status)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &q.ContentMetadata); err != nil {
			return domain.Question{}, fmt.Errorf("decode metadata of %s: %w", q.ID, err)
		}
	}
	return q, nil
}

func (s *Store) listQuestions(ctx context.Context, where string, args ...interface{}) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+questionColumns+` FROM quiz_questions `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) error {
	var meta []byte
	if q.ContentMetadata != nil {
		raw, err := json.Marshal(q.ContentMetadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		meta = raw
	}
	status := q.Status
	if status == "" {
		status = domain.QuestionPending
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quiz_questions (id, quiz_id, question_type, question_content, question_content_metadata,
			correct_answer_hero, answer_image_url, time_limit_seconds, order_index, status, is_active,
			started_at, ended_at, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		q.ID, q.QuizID, string(q.Type), q.Content, nullableJSON(meta), q.CorrectAnswerHero, q.AnswerImageURL,
		q.TimeLimitSeconds, q.OrderIndex, string(status), q.IsActive, q.StartedAt, q.EndedAt, nonZero(q.CreatedAt))
	return mapErr(err, domain.ErrQuizNotFound)
}

func (s *Store) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	q, err := scanQuestion(s.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM quiz_questions WHERE id = $1`, questionID))
	return q, mapErr(err, domain.ErrQuestionNotFound)
}

func (s *Store) ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	return s.listQuestions(ctx, `WHERE quiz_id = $1 ORDER BY order_index, created_at, id`, quizID)
}

func (s *Store) ListLiveQuestions(ctx context.Context) ([]domain.Question, error) {
	return s.listQuestions(ctx, `WHERE is_active AND status = 'live' ORDER BY started_at`)
}

// ActivateExclusive resets every sibling and makes questionID live in one
// transaction. The quiz row is locked so concurrent activations serialize.
func (s *Store) ActivateExclusive(ctx context.Context, quizID, questionID string, now time.Time) (domain.Question, error) {
	var out domain.Question
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, `SELECT id FROM quizzes WHERE id = $1 FOR UPDATE`, quizID).Scan(&locked); err != nil {
			return mapErr(err, domain.ErrQuizNotFound)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE quiz_questions SET is_active = false, status = 'pending', ended_at = $3
			WHERE quiz_id = $1 AND id <> $2`, quizID, questionID, now); err != nil {
			return err
		}
		q, err := scanQuestion(tx.QueryRow(ctx, `
			UPDATE quiz_questions SET is_active = true, status = 'live', started_at = $3, ended_at = NULL
			WHERE quiz_id = $1 AND id = $2
			RETURNING `+questionColumns, quizID, questionID, now))
		if err != nil {
			return mapErr(err, domain.ErrQuestionNotFound)
		}
		out = q
		return nil
	})
	return out, err
}

// EndQuestion is a single conditional UPDATE; when it matches nothing the
// current row is read back to tell a missing question from a stale end.
func (s *Store) EndQuestion(ctx context.Context, questionID string, startedAt *time.Time, now time.Time) (domain.Question, bool, error) {
	q, err := scanQuestion(s.pool.QueryRow(ctx, `
		UPDATE quiz_questions SET is_active = false, status = 'completed', ended_at = $2
		WHERE id = $1
		  AND (is_active OR status <> 'completed')
		  AND ($3::timestamptz IS NULL OR (is_active AND status = 'live' AND started_at = $3))
		RETURNING `+questionColumns, questionID, now, startedAt))
	if err == nil {
		return q, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, false, err
	}
	current, err := s.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.Question{}, false, err
	}
	return current, false, nil
}

func (s *Store) DeleteQuestion(ctx context.Context, questionID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quiz_questions WHERE id = $1`, questionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

// Answers

const answerColumns = `id, user_id, quiz_id, question_id, answer, is_correct, response_time_ms, score, submitted_at`

func scanAnswer(row rowScanner) (domain.Answer, error) {
	var a domain.Answer
	err := row.Scan(&a.ID, &a.UserID, &a.QuizID, &a.QuestionID, &a.Answer, &a.IsCorrect, &a.ResponseTimeMs, &a.Score, &a.SubmittedAt)
	return a, err
}

func (s *Store) InsertAnswer(ctx context.Context, a domain.Answer) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO answers (`+answerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.UserID, a.QuizID, a.QuestionID, a.Answer, a.IsCorrect, a.ResponseTimeMs, a.Score, a.SubmittedAt)
	return mapErr(err, domain.ErrNotFound)
}

func (s *Store) UpdateAnswer(ctx context.Context, a domain.Answer, activeSince time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE answers SET answer = $2, is_correct = $3, response_time_ms = $4, score = $5, submitted_at = $6
		WHERE id = $1 AND submitted_at < $7`,
		a.ID, a.Answer, a.IsCorrect, a.ResponseTimeMs, a.Score, a.SubmittedAt, activeSince)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM answers WHERE id = $1)`, a.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrAnswerNotFound
	}
	return domain.ErrAlreadySubmitted
}

func (s *Store) GetAnswer(ctx context.Context, userID, questionID string) (domain.Answer, error) {
	a, err := scanAnswer(s.pool.QueryRow(ctx, `SELECT `+answerColumns+` FROM answers WHERE user_id = $1 AND question_id = $2`, userID, questionID))
	return a, mapErr(err, domain.ErrAnswerNotFound)
}

func (s *Store) ListAnswersByQuiz(ctx context.Context, quizID string) ([]domain.Answer, error) {
	return s.listAnswers(ctx, `WHERE quiz_id = $1 ORDER BY submitted_at, id`, quizID)
}

func (s *Store) ListAnswersByQuestion(ctx context.Context, questionID string) ([]domain.Answer, error) {
	return s.listAnswers(ctx, `WHERE question_id = $1 ORDER BY submitted_at, id`, questionID)
}

func (s *Store) listAnswers(ctx context.Context, where string, args ...interface{}) ([]domain.Answer, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+answerColumns+` FROM answers `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Users

const userColumns = `id, COALESCE(email, ''), in_game_name, full_name, avatar_url, created_at`

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.InGameName, &u.FullName, &u.AvatarURL, &u.CreatedAt)
	return u, err
}

func (s *Store) GetUser(ctx context.Context, userID string) (domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	return u, mapErr(err, domain.ErrUserNotFound)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	return u, mapErr(err, domain.ErrUserNotFound)
}

func (s *Store) GetUsers(ctx context.Context, userIDs []string) (map[string]domain.User, error) {
	out := make(map[string]domain.User, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	return insertUser(ctx, s.pool, u)
}

// MigrateUser moves staleID's answers onto canonical and removes the stale
// row, all in one transaction. Answers that would collide with one the
// canonical user already holds are dropped.
func (s *Store) MigrateUser(ctx context.Context, staleID string, canonical domain.User) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE users SET email = NULL WHERE id = $1`, staleID); err != nil {
			return err
		}
		if err := insertUser(ctx, tx, canonical); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE answers a SET user_id = $2
			WHERE a.user_id = $1
			  AND NOT EXISTS (SELECT 1 FROM answers b WHERE b.user_id = $2 AND b.question_id = a.question_id)`,
			staleID, canonical.ID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, staleID)
		return err
	})
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func insertUser(ctx context.Context, db execer, u domain.User) error {
	var email interface{}
	if u.Email != "" {
		email = u.Email
	}
	_, err := db.Exec(ctx, `
		INSERT INTO users (id, email, in_game_name, full_name, avatar_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, email, u.InGameName, u.FullName, u.AvatarURL, nonZero(u.CreatedAt))
	return mapErr(err, domain.ErrUserNotFound)
}

func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func nonZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullableJSON(raw []byte) interface{} {
	if raw == nil {
		return nil
	}
	return string(raw)
}
