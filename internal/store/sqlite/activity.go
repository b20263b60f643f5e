package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecordGamePlayed upserts the per-user per-day activity row for one
// multiplayer game: winners get a win and their XP, everyone gets the
// game counted.
func (s *Store) RecordGamePlayed(ctx context.Context, userID string, won bool, xpAmount int) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	date := time.Now().UTC().Format("2006-01-02")
	win := 0
	if won {
		win = 1
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO daily_activity (user_id, date, games_played, multiplayer_wins, xp_earned)
		 VALUES (?, ?, 1, ?, ?)
		 ON CONFLICT (user_id, date) DO UPDATE SET
		   games_played = games_played + 1,
		   multiplayer_wins = multiplayer_wins + excluded.multiplayer_wins,
		   xp_earned = xp_earned + excluded.xp_earned`,
		userID, date, win, xpAmount,
	)
	if err != nil {
		return fmt.Errorf("record game played: %w", err)
	}
	return nil
}

// DailyActivity returns the accumulated counters for one user and day.
// Missing rows read as zeroes.
func (s *Store) DailyActivity(ctx context.Context, userID, date string) (gamesPlayed, wins, xp int, err error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT games_played, multiplayer_wins, xp_earned
		 FROM daily_activity WHERE user_id = ? AND date = ?`, userID, date)
	err = row.Scan(&gamesPlayed, &wins, &xp)
	if err == sql.ErrNoRows {
		return 0, 0, 0, nil
	}
	if err != nil {
		return 0, 0, 0, fmt.Errorf("load daily activity: %w", err)
	}
	return gamesPlayed, wins, xp, nil
}
