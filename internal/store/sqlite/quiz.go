package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quizsmith/quizsmith/internal/game"
)

// GetQuizByID loads a quiz and its questions from the catalog. Quiz
// generation lives elsewhere; this store only reads finished quizzes.
func (s *Store) GetQuizByID(ctx context.Context, quizID string) (*game.Quiz, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, title, status FROM quizzes WHERE id = ?`, quizID)

	var quiz game.Quiz
	err := row.Scan(&quiz.ID, &quiz.Title, &quiz.Status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("quiz %s not found", quizID)
	}
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT question_text, options, correct_answer, COALESCE(explanation, '')
		 FROM questions WHERE quiz_id = ? ORDER BY position`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			q       game.Question
			options string
		)
		if err := rows.Scan(&q.Text, &options, &q.CorrectAnswer, &q.Explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("decode question options: %w", err)
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	quiz.TotalQuestions = len(quiz.Questions)
	return &quiz, nil
}

// SeedQuiz inserts a quiz with its questions; used for development
// fixtures and tests.
func (s *Store) SeedQuiz(ctx context.Context, quiz *game.Quiz) error {
	status := quiz.Status
	if status == "" {
		status = "completed"
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO quizzes (id, title, status, created_at) VALUES (?, ?, ?, ?)`,
		quiz.ID, quiz.Title, status, toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	for i, q := range quiz.Questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode question options: %w", err)
		}
		_, err = s.sqlDB.ExecContext(ctx,
			`INSERT INTO questions (quiz_id, position, question_text, options, correct_answer, explanation)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			quiz.ID, i, q.Text, string(options), q.CorrectAnswer, q.Explanation,
		)
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
	}
	return nil
}
