package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExportResult appends a plain-text summary of a finished game to the
// given file, creating the directory if needed.
func ExportResult(filename, code string, res *GameResult) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Game %s - %q (%d questions)\n", code, res.QuizTitle, res.TotalQuestions))
	sb.WriteString(fmt.Sprintf("Ended: %s\n", res.EndedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	for _, entry := range res.Leaderboard {
		sb.WriteString(fmt.Sprintf("%d. %s: %d points\n", entry.Rank, entry.Nickname, entry.Score))
	}
	sb.WriteString("\n")

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}
