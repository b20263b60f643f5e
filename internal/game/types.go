package game

import (
	"time"
)

type Status string

const (
	StatusLobby          Status = "lobby"
	StatusPlaying        Status = "playing"
	StatusPaused         Status = "paused"
	StatusShowingResults Status = "showing-results"
	StatusFinished       Status = "finished"
)

// Settings configure a single game session. The question timer is a
// display hint for clients; scoring uses the fixed ScoringWindow.
type Settings struct {
	QuestionTimer            int  `json:"questionTimer"` // seconds
	PointsPerQuestion        int  `json:"pointsPerQuestion"`
	ShowLeaderboardAfterEach bool `json:"showLeaderboardAfterEach"`
	AllowLateJoin            bool `json:"allowLateJoin"`
	ShuffleQuestions         bool `json:"shuffleQuestions"`
	ShuffleOptions           bool `json:"shuffleOptions"`
}

const (
	DefaultQuestionTimer     = 20
	DefaultPointsPerQuestion = 1000
)

// WithDefaults fills zero-valued fields with the platform defaults.
func (s Settings) WithDefaults() Settings {
	if s.QuestionTimer <= 0 {
		s.QuestionTimer = DefaultQuestionTimer
	}
	if s.PointsPerQuestion <= 0 {
		s.PointsPerQuestion = DefaultPointsPerQuestion
	}
	return s
}

type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"-"`
	Explanation   string   `json:"-"`
}

type Quiz struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Status         string     `json:"status"`
	Questions      []Question `json:"questions"`
	TotalQuestions int        `json:"totalQuestions"`
}

// Answer is one graded submission. Immutable once recorded; at most one
// per participant per question index.
type Answer struct {
	QuestionIndex int    `json:"questionIndex"`
	Answer        string `json:"answer"`
	IsCorrect     bool   `json:"isCorrect"`
	TimeMs        int64  `json:"timeMs"`
	PointsEarned  int    `json:"pointsEarned"`
}

// Participant is the live, in-memory view of one connected player
// (the host plays too once the game starts).
type Participant struct {
	Nickname string
	ConnID   string
	UserID   string // empty unless the player is an authenticated account
	Score    int
	Answers  []Answer

	CurrentQuestionIndex int
	QuestionStartedAt    time.Time
	Finished             bool
	FinishedAt           time.Time
	JoinedAt             time.Time
}

func (p *Participant) answeredAt(index int) bool {
	for _, a := range p.Answers {
		if a.QuestionIndex == index {
			return true
		}
	}
	return false
}

func (p *Participant) correctCount() int {
	n := 0
	for _, a := range p.Answers {
		if a.IsCorrect {
			n++
		}
	}
	return n
}

type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}

// QuestionPayload is the client-safe projection of a question; it never
// carries the correct answer or the explanation.
type QuestionPayload struct {
	Index          int      `json:"index"`
	Text           string   `json:"questionText"`
	Options        []string `json:"options"`
	TotalQuestions int      `json:"totalQuestions"`
}

func safeQuestion(q Question, index, total int) QuestionPayload {
	return QuestionPayload{
		Index:          index,
		Text:           q.Text,
		Options:        q.Options,
		TotalQuestions: total,
	}
}
