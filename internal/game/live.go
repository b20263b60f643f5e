package game

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotHost             = errors.New("not authorized")
	ErrNotParticipant      = errors.New("you are not in this game")
	ErrAlreadyStarted      = errors.New("game already started")
	ErrNotAcceptingAnswers = errors.New("game is not accepting answers")
	ErrAlreadyFinished     = errors.New("you have already finished")
	ErrStaleQuestion       = errors.New("invalid question")
	ErrDuplicateAnswer     = errors.New("already answered")
	ErrGameOver            = errors.New("game already ended")
	ErrJoinClosed          = errors.New("game already started")
	ErrNoQuestions         = errors.New("quiz has no questions")
)

// LiveGame is the in-memory, high-frequency representation of an active
// session. It is authoritative until eviction; the durable store only
// mirrors it. All mutation goes through its methods, serialized by the
// per-game mutex.
type LiveGame struct {
	Code      string
	SessionID string
	HostID    string
	Quiz      *Quiz
	Settings  Settings

	mu           sync.Mutex
	hostConnID   string
	status       Status
	participants map[string]*Participant // connID -> participant
	order        []string                // connIDs in join order

	// host-paced control surface; never touches per-player cursors
	currentQuestionIndex int
	questionStartedAt    time.Time

	startedAt time.Time
	endedAt   time.Time
	ended     bool

	now func() time.Time
}

func NewLiveGame(code, sessionID string, quiz *Quiz, hostID, hostConnID string, settings Settings) *LiveGame {
	return &LiveGame{
		Code:                 code,
		SessionID:            sessionID,
		HostID:               hostID,
		Quiz:                 quiz,
		Settings:             settings.WithDefaults(),
		hostConnID:           hostConnID,
		status:               StatusLobby,
		participants:         make(map[string]*Participant),
		currentQuestionIndex: -1,
		now:                  time.Now,
	}
}

type JoinResult struct {
	Nickname         string
	QuizTitle        string
	ParticipantCount int
	Roster           []string
	Participant      Participant
}

type StartResult struct {
	Question       QuestionPayload
	TotalQuestions int
	QuestionTimer  int
	StartedAt      time.Time
	Host           Participant
}

type AnswerFeedback struct {
	WasCorrect    bool   `json:"wasCorrect"`
	CorrectAnswer string `json:"correctAnswer"`
	PointsEarned  int    `json:"pointsEarned"`
}

type NextQuestion struct {
	Question   QuestionPayload
	Previous   AnswerFeedback
	TotalScore int
}

type FinishSummary struct {
	TotalScore     int
	CorrectCount   int
	TotalQuestions int
	TimeTaken      time.Duration
}

type Progress struct {
	FinishedCount int
	TotalPlayers  int
}

type PlayerResult struct {
	Nickname string
	UserID   string
	Score    int
	Won      bool
}

type GameResult struct {
	Leaderboard    []LeaderboardEntry
	TotalQuestions int
	QuizTitle      string
	EndedAt        time.Time
	Players        []PlayerResult
}

// SubmitOutcome carries everything the adapter needs to route after an
// accepted answer: exactly one of Next or Finished is set; End is set
// only when this submission completed the whole game.
type SubmitOutcome struct {
	Nickname   string
	Answer     Answer
	TotalScore int
	Next       *NextQuestion
	Finished   *FinishSummary
	Progress   *Progress
	End        *GameResult
}

type HostQuestion struct {
	Question      QuestionPayload
	QuestionTimer int
}

type QuestionResults struct {
	CorrectAnswer string
	Explanation   string
	AnswerCounts  map[string]int
	CorrectCount  int
	TotalAnswers  int
	Leaderboard   []LeaderboardEntry
}

type LeaveResult struct {
	Nickname         string
	ParticipantCount int
}

// Join adds a player to the roster. Nickname collisions are resolved by
// appending a numeric suffix. Joining after start requires the late-join
// setting.
func (g *LiveGame) Join(connID, nickname, userID string) (*JoinResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ended || g.status == StatusFinished {
		return nil, ErrJoinClosed
	}
	if g.status != StatusLobby && !g.Settings.AllowLateJoin {
		return nil, ErrJoinClosed
	}

	p := &Participant{
		Nickname: g.dedupNicknameLocked(nickname),
		ConnID:   connID,
		UserID:   userID,
		JoinedAt: g.now(),
	}
	if g.status == StatusPlaying {
		// late joiner starts its own self-paced run at question 0
		p.QuestionStartedAt = g.now()
	}
	g.participants[connID] = p
	g.order = append(g.order, connID)

	return &JoinResult{
		Nickname:         p.Nickname,
		QuizTitle:        g.Quiz.Title,
		ParticipantCount: len(g.participants),
		Roster:           g.rosterLocked(),
		Participant:      *p,
	}, nil
}

// Start transitions lobby -> playing. Only the registered host connection
// may start; the host is registered as a participant so it plays too.
// Every participant's cursor is reset to question 0.
func (g *LiveGame) Start(connID, hostNickname string) (*StartResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if connID != g.hostConnID {
		return nil, ErrNotHost
	}
	if g.status != StatusLobby {
		return nil, ErrAlreadyStarted
	}
	if len(g.Quiz.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	if hostNickname == "" {
		hostNickname = "Host"
	}
	host := &Participant{
		Nickname: g.dedupNicknameLocked(hostNickname),
		ConnID:   connID,
		UserID:   g.HostID,
		JoinedAt: g.now(),
	}
	g.participants[connID] = host
	g.order = append(g.order, connID)

	now := g.now()
	for _, p := range g.participants {
		p.CurrentQuestionIndex = 0
		p.QuestionStartedAt = now
		p.Finished = false
	}

	g.status = StatusPlaying
	g.startedAt = now
	g.currentQuestionIndex = 0
	g.questionStartedAt = now

	return &StartResult{
		Question:       safeQuestion(g.Quiz.Questions[0], 0, g.Quiz.TotalQuestions),
		TotalQuestions: g.Quiz.TotalQuestions,
		QuestionTimer:  g.Settings.QuestionTimer,
		StartedAt:      now,
		Host:           *host,
	}, nil
}

// SubmitAnswer grades one self-paced submission and advances the
// participant's own cursor. Submissions are still evaluated while the
// session is paused: a host drop does not block the remaining players.
func (g *LiveGame) SubmitAnswer(connID string, questionIndex int, answer string) (*SubmitOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ended {
		return nil, ErrGameOver
	}
	if g.status != StatusPlaying && g.status != StatusPaused {
		return nil, ErrNotAcceptingAnswers
	}
	p := g.participants[connID]
	if p == nil {
		return nil, ErrNotParticipant
	}
	if p.Finished {
		return nil, ErrAlreadyFinished
	}
	if questionIndex != p.CurrentQuestionIndex {
		return nil, ErrStaleQuestion
	}
	if p.answeredAt(questionIndex) {
		return nil, ErrDuplicateAnswer
	}
	if questionIndex < 0 || questionIndex >= g.Quiz.TotalQuestions {
		return nil, ErrStaleQuestion
	}

	now := g.now()
	q := g.Quiz.Questions[questionIndex]
	isCorrect := answer == q.CorrectAnswer
	elapsed := now.Sub(p.QuestionStartedAt)
	points := Score(isCorrect, elapsed, ScoringWindow, g.Settings.PointsPerQuestion)

	rec := Answer{
		QuestionIndex: questionIndex,
		Answer:        answer,
		IsCorrect:     isCorrect,
		TimeMs:        elapsed.Milliseconds(),
		PointsEarned:  points,
	}
	p.Answers = append(p.Answers, rec)
	p.Score += points

	out := &SubmitOutcome{Nickname: p.Nickname, Answer: rec, TotalScore: p.Score}

	next := questionIndex + 1
	if next < g.Quiz.TotalQuestions {
		p.CurrentQuestionIndex = next
		p.QuestionStartedAt = now
		out.Next = &NextQuestion{
			Question: safeQuestion(g.Quiz.Questions[next], next, g.Quiz.TotalQuestions),
			Previous: AnswerFeedback{
				WasCorrect:    isCorrect,
				CorrectAnswer: q.CorrectAnswer,
				PointsEarned:  points,
			},
			TotalScore: p.Score,
		}
		return out, nil
	}

	p.Finished = true
	p.FinishedAt = now
	out.Finished = &FinishSummary{
		TotalScore:     p.Score,
		CorrectCount:   p.correctCount(),
		TotalQuestions: g.Quiz.TotalQuestions,
		TimeTaken:      now.Sub(g.startedAt),
	}
	if g.allFinishedLocked() {
		out.End = g.endLocked()
	} else {
		out.Progress = &Progress{
			FinishedCount: g.finishedCountLocked(),
			TotalPlayers:  len(g.participants),
		}
	}
	return out, nil
}

// HostEnd ends the game on the host's explicit request.
func (g *LiveGame) HostEnd(connID string) (*GameResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if connID != g.hostConnID {
		return nil, ErrNotHost
	}
	if g.ended {
		return nil, ErrGameOver
	}
	return g.endLocked(), nil
}

// HostNextQuestion advances the session-level index of the host-paced
// control surface. Individual self-paced cursors are untouched. Advancing
// past the last question ends the game.
func (g *LiveGame) HostNextQuestion(connID string) (*HostQuestion, *GameResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if connID != g.hostConnID {
		return nil, nil, ErrNotHost
	}
	if g.ended {
		return nil, nil, ErrGameOver
	}
	next := g.currentQuestionIndex + 1
	if next >= g.Quiz.TotalQuestions {
		return nil, g.endLocked(), nil
	}
	g.currentQuestionIndex = next
	g.questionStartedAt = g.now()
	return &HostQuestion{
		Question:      safeQuestion(g.Quiz.Questions[next], next, g.Quiz.TotalQuestions),
		QuestionTimer: g.Settings.QuestionTimer,
	}, nil, nil
}

// HostQuestionResults tallies the answer distribution for the session-level
// question index.
func (g *LiveGame) HostQuestionResults(connID string) (*QuestionResults, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if connID != g.hostConnID {
		return nil, ErrNotHost
	}
	if g.currentQuestionIndex < 0 || g.currentQuestionIndex >= g.Quiz.TotalQuestions {
		return nil, ErrStaleQuestion
	}

	q := g.Quiz.Questions[g.currentQuestionIndex]
	counts := make(map[string]int, len(q.Options))
	for _, opt := range q.Options {
		counts[opt] = 0
	}
	correct := 0
	for _, p := range g.participants {
		for _, a := range p.Answers {
			if a.QuestionIndex != g.currentQuestionIndex {
				continue
			}
			counts[a.Answer]++
			if a.IsCorrect {
				correct++
			}
		}
	}
	return &QuestionResults{
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		AnswerCounts:  counts,
		CorrectCount:  correct,
		TotalAnswers:  len(g.participants),
		Leaderboard:   g.leaderboardLocked(5),
	}, nil
}

// HostDisconnect pauses the session when the registered host connection
// drops. There is no automatic resume; reconnection as host is not
// supported.
func (g *LiveGame) HostDisconnect(connID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if connID != g.hostConnID || g.ended {
		return false
	}
	g.status = StatusPaused
	return true
}

// RemoveParticipant drops a player from the live roster. Their durable
// answers remain recorded. If the removal leaves every remaining
// participant finished, the game ends; without this recheck the session
// would hang in playing with no further inbound events.
func (g *LiveGame) RemoveParticipant(connID string) (*LeaveResult, *GameResult) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.participants[connID]
	if p == nil {
		return nil, nil
	}
	delete(g.participants, connID)
	for i, id := range g.order {
		if id == connID {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}

	res := &LeaveResult{Nickname: p.Nickname, ParticipantCount: len(g.participants)}
	active := g.status == StatusPlaying || g.status == StatusPaused
	if active && !g.ended && len(g.participants) > 0 && g.allFinishedLocked() {
		return res, g.endLocked()
	}
	return res, nil
}

// Leaderboard ranks participants by score descending; ties keep join
// order (stable sort).
func (g *LiveGame) Leaderboard(limit int) []LeaderboardEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.leaderboardLocked(limit)
}

func (g *LiveGame) CurrentStatus() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

func (g *LiveGame) ParticipantCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.participants)
}

func (g *LiveGame) HostConnID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hostConnID
}

func (g *LiveGame) endLocked() *GameResult {
	if g.ended {
		return nil
	}
	g.ended = true
	g.status = StatusFinished
	g.endedAt = g.now()

	board := g.leaderboardLocked(0)
	winner := ""
	if len(board) > 0 {
		winner = board[0].Nickname
	}
	players := make([]PlayerResult, 0, len(g.order))
	for _, id := range g.order {
		p := g.participants[id]
		players = append(players, PlayerResult{
			Nickname: p.Nickname,
			UserID:   p.UserID,
			Score:    p.Score,
			Won:      p.Nickname == winner,
		})
	}
	return &GameResult{
		Leaderboard:    board,
		TotalQuestions: g.Quiz.TotalQuestions,
		QuizTitle:      g.Quiz.Title,
		EndedAt:        g.endedAt,
		Players:        players,
	}
}

func (g *LiveGame) leaderboardLocked(limit int) []LeaderboardEntry {
	ranked := make([]*Participant, 0, len(g.order))
	for _, id := range g.order {
		ranked = append(ranked, g.participants[id])
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	board := make([]LeaderboardEntry, len(ranked))
	for i, p := range ranked {
		board[i] = LeaderboardEntry{Rank: i + 1, Nickname: p.Nickname, Score: p.Score}
	}
	return board
}

func (g *LiveGame) allFinishedLocked() bool {
	for _, p := range g.participants {
		if !p.Finished {
			return false
		}
	}
	return len(g.participants) > 0
}

func (g *LiveGame) finishedCountLocked() int {
	n := 0
	for _, p := range g.participants {
		if p.Finished {
			n++
		}
	}
	return n
}

func (g *LiveGame) rosterLocked() []string {
	names := make([]string, 0, len(g.order))
	for _, id := range g.order {
		names = append(names, g.participants[id].Nickname)
	}
	return names
}

func (g *LiveGame) dedupNicknameLocked(nickname string) string {
	if nickname == "" {
		nickname = "Player"
	}
	final := nickname
	for counter := 1; g.nicknameTakenLocked(final); counter++ {
		final = fmt.Sprintf("%s%d", nickname, counter)
	}
	return final
}

func (g *LiveGame) nicknameTakenLocked(nickname string) bool {
	for _, p := range g.participants {
		if p.Nickname == nickname {
			return true
		}
	}
	return false
}
