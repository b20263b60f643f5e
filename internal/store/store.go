// Package store holds the durable session records and the write-behind
// queue that mirrors live game state into persistence. During an active
// game the in-memory registry is authoritative; the store becomes
// authoritative only after the final flush on game end.
package store

import (
	"time"

	"github.com/quizsmith/quizsmith/internal/game"
)

// Session is the durable record of a game session. It is never deleted;
// finished sessions remain as a historical record.
type Session struct {
	ID                   string
	GameCode             string
	HostID               string
	QuizID               string
	Status               game.Status
	Settings             game.Settings
	CurrentQuestionIndex int
	Participants         []Participant
	CreatedAt            time.Time
	StartedAt            time.Time
	EndedAt              time.Time

	TotalParticipants int
	AverageScore      int
}

// Participant is the durable roster entry. It outlives the player's
// connection: disconnects remove players from the live roster only.
type Participant struct {
	Nickname     string
	ConnectionID string
	UserID       string
	Score        int
	JoinedAt     time.Time
	Answers      []game.Answer
}
