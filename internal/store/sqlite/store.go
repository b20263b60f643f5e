// Package sqlite provides the SQLite-backed durable layer: game
// sessions, the quiz catalog, and the daily activity recorder.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quizsmith/quizsmith/internal/game"
	"github.com/quizsmith/quizsmith/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  game_code TEXT NOT NULL,
  host_id TEXT NOT NULL,
  quiz_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'lobby',
  current_question_index INTEGER NOT NULL DEFAULT -1,
  question_timer INTEGER NOT NULL DEFAULT 20,
  points_per_question INTEGER NOT NULL DEFAULT 1000,
  show_leaderboard_after_each INTEGER NOT NULL DEFAULT 1,
  allow_late_join INTEGER NOT NULL DEFAULT 0,
  shuffle_questions INTEGER NOT NULL DEFAULT 0,
  shuffle_options INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  started_at INTEGER,
  ended_at INTEGER,
  total_participants INTEGER NOT NULL DEFAULT 0,
  average_score INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_game_code ON sessions (game_code);

CREATE TABLE IF NOT EXISTS participants (
  session_id TEXT NOT NULL,
  connection_id TEXT NOT NULL,
  nickname TEXT NOT NULL,
  user_id TEXT,
  score INTEGER NOT NULL DEFAULT 0,
  joined_at INTEGER NOT NULL,
  PRIMARY KEY (session_id, connection_id)
);

CREATE TABLE IF NOT EXISTS answers (
  session_id TEXT NOT NULL,
  connection_id TEXT NOT NULL,
  question_index INTEGER NOT NULL,
  answer TEXT,
  is_correct INTEGER NOT NULL DEFAULT 0,
  time_ms INTEGER NOT NULL DEFAULT 0,
  points_earned INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (session_id, connection_id, question_index)
);

CREATE TABLE IF NOT EXISTS quizzes (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'completed',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  quiz_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  question_text TEXT NOT NULL,
  options TEXT NOT NULL,
  correct_answer TEXT NOT NULL,
  explanation TEXT,
  PRIMARY KEY (quiz_id, position)
);

CREATE TABLE IF NOT EXISTS daily_activity (
  user_id TEXT NOT NULL,
  date TEXT NOT NULL,
  games_played INTEGER NOT NULL DEFAULT 0,
  multiplayer_wins INTEGER NOT NULL DEFAULT 0,
  xp_earned INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (user_id, date)
);
`

// Store persists game sessions in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store at the given path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GenerateCode produces a 6-digit numeric game code, retrying while any
// non-finished session holds the candidate. Uniqueness here is a
// liveness property, not a security one.
func (s *Store) GenerateCode(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code := fmt.Sprintf("%06d", 100000+rand.Intn(900000))
		var count int
		err := s.sqlDB.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sessions WHERE game_code = ? AND status <> 'finished'`,
			code,
		).Scan(&count)
		if err != nil {
			return "", fmt.Errorf("check game code: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}
}

// CreateSession inserts one session record in lobby status.
func (s *Store) CreateSession(ctx context.Context, sess *store.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("session id is required")
	}
	if sess.GameCode == "" {
		return fmt.Errorf("game code is required")
	}
	createdAt := sess.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	status := sess.Status
	if status == "" {
		status = game.StatusLobby
	}
	settings := sess.Settings.WithDefaults()
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO sessions (
		   id, game_code, host_id, quiz_id, status, current_question_index,
		   question_timer, points_per_question, show_leaderboard_after_each,
		   allow_late_join, shuffle_questions, shuffle_options, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID,
		sess.GameCode,
		sess.HostID,
		sess.QuizID,
		string(status),
		sess.CurrentQuestionIndex,
		settings.QuestionTimer,
		settings.PointsPerQuestion,
		boolToInt(settings.ShowLeaderboardAfterEach),
		boolToInt(settings.AllowLateJoin),
		boolToInt(settings.ShuffleQuestions),
		boolToInt(settings.ShuffleOptions),
		toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// AppendParticipant adds one roster entry and refreshes session stats.
func (s *Store) AppendParticipant(ctx context.Context, sessionID string, p store.Participant) error {
	joinedAt := p.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now().UTC()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO participants (session_id, connection_id, nickname, user_id, score, joined_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, p.ConnectionID, p.Nickname, nullString(p.UserID), p.Score, toMillis(joinedAt),
	)
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return s.refreshStats(ctx, sessionID)
}

// RecordAnswer appends one answer record, updates the participant's
// cumulative score, and refreshes session stats.
func (s *Store) RecordAnswer(ctx context.Context, sessionID, connectionID string, score int, a game.Answer) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO answers (session_id, connection_id, question_index, answer, is_correct, time_ms, points_earned)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, connectionID, a.QuestionIndex, a.Answer, boolToInt(a.IsCorrect), a.TimeMs, a.PointsEarned,
	)
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`UPDATE participants SET score = ? WHERE session_id = ? AND connection_id = ?`,
		score, sessionID, connectionID,
	)
	if err != nil {
		return fmt.Errorf("update participant score: %w", err)
	}
	return s.refreshStats(ctx, sessionID)
}

// MarkStarted transitions the record to playing.
func (s *Store) MarkStarted(ctx context.Context, sessionID string, at time.Time) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`UPDATE sessions SET status = 'playing', started_at = ?, current_question_index = 0 WHERE id = ?`,
		toMillis(at), sessionID,
	)
	if err != nil {
		return fmt.Errorf("mark session started: %w", err)
	}
	return nil
}

// SetCurrentQuestion mirrors the host-paced session-level index.
func (s *Store) SetCurrentQuestion(ctx context.Context, sessionID string, index int) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`UPDATE sessions SET current_question_index = ? WHERE id = ?`,
		index, sessionID,
	)
	if err != nil {
		return fmt.Errorf("set current question: %w", err)
	}
	return nil
}

// MarkPaused records a host disconnect.
func (s *Store) MarkPaused(ctx context.Context, sessionID string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`UPDATE sessions SET status = 'paused' WHERE id = ?`, sessionID,
	)
	if err != nil {
		return fmt.Errorf("mark session paused: %w", err)
	}
	return nil
}

// MarkFinished transitions the record to finished; the durable store is
// authoritative from this point on.
func (s *Store) MarkFinished(ctx context.Context, sessionID string, at time.Time) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`UPDATE sessions SET status = 'finished', ended_at = ? WHERE id = ?`,
		toMillis(at), sessionID,
	)
	if err != nil {
		return fmt.Errorf("mark session finished: %w", err)
	}
	return nil
}

// GetSession loads one session with its roster and answers.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*store.Session, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, game_code, host_id, quiz_id, status, current_question_index,
		        question_timer, points_per_question, show_leaderboard_after_each,
		        allow_late_join, shuffle_questions, shuffle_options,
		        created_at, started_at, ended_at, total_participants, average_score
		 FROM sessions WHERE id = ?`, sessionID)

	var (
		sess                      store.Session
		status                    string
		showLeaderboard, lateJoin int
		shuffleQ, shuffleO        int
		createdAt                 int64
		startedAt, endedAt        sql.NullInt64
	)
	err := row.Scan(
		&sess.ID, &sess.GameCode, &sess.HostID, &sess.QuizID, &status,
		&sess.CurrentQuestionIndex,
		&sess.Settings.QuestionTimer, &sess.Settings.PointsPerQuestion,
		&showLeaderboard, &lateJoin, &shuffleQ, &shuffleO,
		&createdAt, &startedAt, &endedAt,
		&sess.TotalParticipants, &sess.AverageScore,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	sess.Status = game.Status(status)
	sess.Settings.ShowLeaderboardAfterEach = showLeaderboard != 0
	sess.Settings.AllowLateJoin = lateJoin != 0
	sess.Settings.ShuffleQuestions = shuffleQ != 0
	sess.Settings.ShuffleOptions = shuffleO != 0
	sess.CreatedAt = fromMillis(createdAt)
	if startedAt.Valid {
		sess.StartedAt = fromMillis(startedAt.Int64)
	}
	if endedAt.Valid {
		sess.EndedAt = fromMillis(endedAt.Int64)
	}

	participants, err := s.loadParticipants(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.Participants = participants
	return &sess, nil
}

func (s *Store) loadParticipants(ctx context.Context, sessionID string) ([]store.Participant, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT connection_id, nickname, user_id, score, joined_at
		 FROM participants WHERE session_id = ? ORDER BY joined_at, connection_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	defer rows.Close()

	var out []store.Participant
	for rows.Next() {
		var (
			p        store.Participant
			userID   sql.NullString
			joinedAt int64
		)
		if err := rows.Scan(&p.ConnectionID, &p.Nickname, &userID, &p.Score, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		p.UserID = userID.String
		p.JoinedAt = fromMillis(joinedAt)
		answers, err := s.loadAnswers(ctx, sessionID, p.ConnectionID)
		if err != nil {
			return nil, err
		}
		p.Answers = answers
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) loadAnswers(ctx context.Context, sessionID, connectionID string) ([]game.Answer, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT question_index, answer, is_correct, time_ms, points_earned
		 FROM answers WHERE session_id = ? AND connection_id = ? ORDER BY question_index`,
		sessionID, connectionID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()

	var out []game.Answer
	for rows.Next() {
		var (
			a         game.Answer
			isCorrect int
		)
		if err := rows.Scan(&a.QuestionIndex, &a.Answer, &isCorrect, &a.TimeMs, &a.PointsEarned); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		a.IsCorrect = isCorrect != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) refreshStats(ctx context.Context, sessionID string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`UPDATE sessions SET
		   total_participants = (SELECT COUNT(*) FROM participants WHERE session_id = ?),
		   average_score = (SELECT CAST(COALESCE(ROUND(AVG(score)), 0) AS INTEGER)
		                    FROM participants WHERE session_id = ?)
		 WHERE id = ?`,
		sessionID, sessionID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("refresh session stats: %w", err)
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
