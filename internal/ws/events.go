package ws

import "github.com/quizsmith/quizsmith/internal/game"

// Inbound events form a closed set; each is dispatched to a typed
// handler so an unknown event name simply never reaches game logic.
const (
	EventCreateGame          = "create-game"
	EventStartGame           = "start-game"
	EventJoinGame            = "join-game"
	EventSubmitAnswer        = "submit-answer"
	EventNextQuestion        = "next-question"
	EventShowQuestionResults = "show-question-results"
	EventEndGame             = "end-game"
)

// Outbound events.
const (
	EventGameCreated      = "game-created"
	EventJoinedGame       = "joined-game"
	EventPlayerJoined     = "player-joined"
	EventPlayerLeft       = "player-left"
	EventGameStarted      = "game-started"
	EventNewQuestion      = "new-question"  // host-paced room broadcast
	EventNextQuestionOut  = "next-question" // personal self-paced advance
	EventPlayerFinished   = "player-finished"
	EventPlayerProgress   = "player-progress"
	EventQuestionResults  = "question-results"
	EventGameEnded        = "game-ended"
	EventHostDisconnected = "host-disconnected"
	EventError            = "error"
)

type createGamePayload struct {
	QuizID   string        `json:"quizId"`
	HostID   string        `json:"hostId"`
	Settings game.Settings `json:"settings"`
}

type startGamePayload struct {
	GameCode     string `json:"gameCode"`
	HostNickname string `json:"hostNickname"`
}

type joinGamePayload struct {
	GameCode string `json:"gameCode"`
	Nickname string `json:"nickname"`
	UserID   string `json:"userId"`
}

type submitAnswerPayload struct {
	GameCode      string `json:"gameCode"`
	QuestionIndex int    `json:"questionIndex"`
	Answer        string `json:"answer"`
}

type gameCodePayload struct {
	GameCode string `json:"gameCode"`
}
