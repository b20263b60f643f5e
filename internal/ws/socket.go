// Package ws binds socket.io connections to the game state machine. The
// adapter only translates and routes; every business decision lives in
// internal/game.
package ws

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/quizsmith/quizsmith/internal/config"
	"github.com/quizsmith/quizsmith/internal/game"
	"github.com/quizsmith/quizsmith/internal/store"
)

type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
)

// ConnCtx is the per-connection side table entry: which game the
// connection belongs to and in what role.
type ConnCtx struct {
	Code     string
	Role     Role
	Nickname string
}

// SessionStore is the durable persistence surface the adapter mirrors
// live state into. All calls except CreateSession go through the
// write-behind queue.
type SessionStore interface {
	GenerateCode(ctx context.Context) (string, error)
	CreateSession(ctx context.Context, sess *store.Session) error
	AppendParticipant(ctx context.Context, sessionID string, p store.Participant) error
	RecordAnswer(ctx context.Context, sessionID, connectionID string, score int, a game.Answer) error
	MarkStarted(ctx context.Context, sessionID string, at time.Time) error
	SetCurrentQuestion(ctx context.Context, sessionID string, index int) error
	MarkPaused(ctx context.Context, sessionID string) error
	MarkFinished(ctx context.Context, sessionID string, at time.Time) error
}

// QuizProvider supplies finalized question sets; quiz generation is a
// separate concern.
type QuizProvider interface {
	GetQuizByID(ctx context.Context, quizID string) (*game.Quiz, error)
}

// ActivityRecorder tracks per-user daily multiplayer activity.
type ActivityRecorder interface {
	RecordGamePlayed(ctx context.Context, userID string, won bool, xpAmount int) error
}

const (
	xpWin    = 100
	xpPlayed = 30
)

type Server struct {
	registry *game.Registry
	sessions SessionStore
	quizzes  QuizProvider
	activity ActivityRecorder
	wb       *store.WriteBehind
	cfg      config.Config
}

func New(registry *game.Registry, sessions SessionStore, quizzes QuizProvider, activity ActivityRecorder, wb *store.WriteBehind, cfg config.Config) *Server {
	return &Server{
		registry: registry,
		sessions: sessions,
		quizzes:  quizzes,
		activity: activity,
		wb:       wb,
		cfg:      cfg,
	}
}

// Mount attaches the Socket.IO server with all game handlers to the
// given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	io.OnEvent("/", EventCreateGame, func(s socketio.Conn, payload createGamePayload) map[string]any {
		g, err := srv.createGame(s.ID(), payload)
		if err != nil {
			return srv.err(s, err.Error())
		}

		s.SetContext(&ConnCtx{Code: g.Code, Role: RoleHost})
		s.Join(g.Code)
		log.Info().Str("sid", s.ID()).Str("code", g.Code).Str("hostId", payload.HostID).Msg("game created")

		s.Emit(EventGameCreated, map[string]any{
			"gameCode":  g.Code,
			"sessionId": g.SessionID,
			"quiz": map[string]any{
				"title":          g.Quiz.Title,
				"totalQuestions": g.Quiz.TotalQuestions,
			},
		})
		return map[string]any{"gameCode": g.Code, "sessionId": g.SessionID}
	})

	io.OnEvent("/", EventStartGame, func(s socketio.Conn, payload startGamePayload) map[string]any {
		g, err := srv.registry.Get(payload.GameCode)
		if err != nil {
			return srv.err(s, errMessage(err))
		}
		res, err := g.Start(s.ID(), payload.HostNickname)
		if err != nil {
			return srv.err(s, errMessage(err))
		}

		if ctx, ok := s.Context().(*ConnCtx); ok {
			ctx.Nickname = res.Host.Nickname
		}

		sessionID := g.SessionID
		host := res.Host
		srv.wb.Enqueue("mark-started", func(ctx context.Context) error {
			return srv.sessions.MarkStarted(ctx, sessionID, res.StartedAt)
		})
		srv.wb.Enqueue("append-host", func(ctx context.Context) error {
			return srv.sessions.AppendParticipant(ctx, sessionID, store.Participant{
				Nickname:     host.Nickname,
				ConnectionID: host.ConnID,
				UserID:       host.UserID,
				JoinedAt:     host.JoinedAt,
			})
		})

		io.BroadcastToRoom("/", payload.GameCode, EventGameStarted, map[string]any{
			"question":       res.Question,
			"totalQuestions": res.TotalQuestions,
			"questionTimer":  res.QuestionTimer,
		})
		log.Info().Str("code", payload.GameCode).Int("players", g.ParticipantCount()).Msg("game started")
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", EventJoinGame, func(s socketio.Conn, payload joinGamePayload) map[string]any {
		g, err := srv.registry.Get(payload.GameCode)
		if err != nil {
			return srv.err(s, errMessage(err))
		}
		res, err := g.Join(s.ID(), payload.Nickname, payload.UserID)
		if err != nil {
			return srv.err(s, errMessage(err))
		}

		s.SetContext(&ConnCtx{Code: payload.GameCode, Role: RolePlayer, Nickname: res.Nickname})
		s.Join(payload.GameCode)

		sessionID := g.SessionID
		p := res.Participant
		srv.wb.Enqueue("append-participant", func(ctx context.Context) error {
			return srv.sessions.AppendParticipant(ctx, sessionID, store.Participant{
				Nickname:     p.Nickname,
				ConnectionID: p.ConnID,
				UserID:       p.UserID,
				JoinedAt:     p.JoinedAt,
			})
		})

		s.Emit(EventJoinedGame, map[string]any{
			"nickname":         res.Nickname,
			"quizTitle":        res.QuizTitle,
			"participantCount": res.ParticipantCount,
		})

		roster := make([]map[string]any, 0, len(res.Roster))
		for _, name := range res.Roster {
			roster = append(roster, map[string]any{"nickname": name})
		}
		io.BroadcastToRoom("/", payload.GameCode, EventPlayerJoined, map[string]any{
			"nickname":         res.Nickname,
			"participantCount": res.ParticipantCount,
			"participants":     roster,
		})
		log.Info().Str("code", payload.GameCode).Str("nickname", res.Nickname).Msg("player joined")
		return map[string]any{"nickname": res.Nickname}
	})

	io.OnEvent("/", EventSubmitAnswer, func(s socketio.Conn, payload submitAnswerPayload) map[string]any {
		g, err := srv.registry.Get(payload.GameCode)
		if err != nil {
			return srv.err(s, errMessage(err))
		}
		out, err := g.SubmitAnswer(s.ID(), payload.QuestionIndex, payload.Answer)
		if err != nil {
			return srv.err(s, errMessage(err))
		}

		sessionID := g.SessionID
		connID := s.ID()
		rec := out.Answer
		total := out.TotalScore
		srv.wb.Enqueue("record-answer", func(ctx context.Context) error {
			return srv.sessions.RecordAnswer(ctx, sessionID, connID, total, rec)
		})

		switch {
		case out.Next != nil:
			s.Emit(EventNextQuestionOut, map[string]any{
				"question":       out.Next.Question,
				"previousAnswer": out.Next.Previous,
				"totalScore":     out.Next.TotalScore,
			})
		case out.Finished != nil:
			s.Emit(EventPlayerFinished, map[string]any{
				"totalScore":        out.Finished.TotalScore,
				"answeredCorrectly": out.Finished.CorrectCount,
				"totalQuestions":    out.Finished.TotalQuestions,
				"timeTaken":         out.Finished.TimeTaken.Milliseconds(),
			})
		}
		log.Info().
			Str("code", payload.GameCode).
			Str("nickname", out.Nickname).
			Int("question", payload.QuestionIndex).
			Bool("correct", rec.IsCorrect).
			Msg("answer submitted")

		if out.End != nil {
			srv.finishGame(io, payload.GameCode, g, out.End)
		} else if out.Progress != nil {
			io.BroadcastToRoom("/", payload.GameCode, EventPlayerProgress, map[string]any{
				"finishedCount": out.Progress.FinishedCount,
				"totalPlayers":  out.Progress.TotalPlayers,
			})
		}
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", EventNextQuestion, func(s socketio.Conn, payload gameCodePayload) map[string]any {
		g, err := srv.registry.Get(payload.GameCode)
		if err != nil {
			return srv.err(s, errMessage(err))
		}
		hq, end, err := g.HostNextQuestion(s.ID())
		if err != nil {
			return srv.err(s, errMessage(err))
		}
		if end != nil {
			srv.finishGame(io, payload.GameCode, g, end)
			return map[string]any{"ok": true}
		}

		sessionID := g.SessionID
		index := hq.Question.Index
		srv.wb.Enqueue("set-current-question", func(ctx context.Context) error {
			return srv.sessions.SetCurrentQuestion(ctx, sessionID, index)
		})

		io.BroadcastToRoom("/", payload.GameCode, EventNewQuestion, map[string]any{
			"question":      hq.Question,
			"questionTimer": hq.QuestionTimer,
		})
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", EventShowQuestionResults, func(s socketio.Conn, payload gameCodePayload) map[string]any {
		g, err := srv.registry.Get(payload.GameCode)
		if err != nil {
			return srv.err(s, errMessage(err))
		}
		qr, err := g.HostQuestionResults(s.ID())
		if err != nil {
			return srv.err(s, errMessage(err))
		}
		io.BroadcastToRoom("/", payload.GameCode, EventQuestionResults, map[string]any{
			"correctAnswer": qr.CorrectAnswer,
			"explanation":   qr.Explanation,
			"answerCounts":  qr.AnswerCounts,
			"correctCount":  qr.CorrectCount,
			"totalAnswers":  qr.TotalAnswers,
			"leaderboard":   qr.Leaderboard,
		})
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", EventEndGame, func(s socketio.Conn, payload gameCodePayload) map[string]any {
		g, err := srv.registry.Get(payload.GameCode)
		if err != nil {
			return srv.err(s, errMessage(err))
		}
		res, err := g.HostEnd(s.ID())
		if err != nil {
			return srv.err(s, errMessage(err))
		}
		srv.finishGame(io, payload.GameCode, g, res)
		return map[string]any{"ok": true}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})

	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		ctx, ok := s.Context().(*ConnCtx)
		if !ok || ctx.Code == "" {
			log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
			return
		}
		g, err := srv.registry.Get(ctx.Code)
		if err != nil {
			return
		}
		if ctx.Role == RoleHost {
			if g.HostDisconnect(s.ID()) {
				sessionID := g.SessionID
				srv.wb.Enqueue("mark-paused", func(c context.Context) error {
					return srv.sessions.MarkPaused(c, sessionID)
				})
				io.BroadcastToRoom("/", ctx.Code, EventHostDisconnected, map[string]any{
					"message": "Host has disconnected. Game paused.",
				})
				log.Info().Str("code", ctx.Code).Msg("host disconnected, game paused")
			}
			return
		}

		leave, end := g.RemoveParticipant(s.ID())
		if leave != nil {
			io.BroadcastToRoom("/", ctx.Code, EventPlayerLeft, map[string]any{
				"nickname":         leave.Nickname,
				"participantCount": leave.ParticipantCount,
			})
			log.Info().Str("code", ctx.Code).Str("nickname", leave.Nickname).Msg("player left")
		}
		if end != nil {
			srv.finishGame(io, ctx.Code, g, end)
		}
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

// createGame validates a create-game request, persists the session
// record, and registers the live game. The errors it returns carry the
// exact message emitted to the client.
func (srv *Server) createGame(hostConnID string, payload createGamePayload) (*game.LiveGame, error) {
	if payload.QuizID == "" || uuid.Validate(payload.QuizID) != nil {
		return nil, errors.New("Invalid quiz ID")
	}
	if payload.HostID == "" || uuid.Validate(payload.HostID) != nil {
		return nil, errors.New("Invalid host ID")
	}

	quiz, err := srv.quizzes.GetQuizByID(context.Background(), payload.QuizID)
	if err != nil {
		return nil, errors.New("Quiz not found")
	}
	if quiz.Status != "completed" {
		return nil, errors.New("Quiz is not ready yet")
	}
	if len(quiz.Questions) == 0 {
		return nil, errors.New("Quiz has no questions")
	}

	settings := payload.Settings.WithDefaults()
	applyShuffle(quiz, settings)

	code, err := srv.sessions.GenerateCode(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("generate game code")
		return nil, errors.New("Failed to create game")
	}

	sess := &store.Session{
		ID:                   uuid.NewString(),
		GameCode:             code,
		HostID:               payload.HostID,
		QuizID:               payload.QuizID,
		Status:               game.StatusLobby,
		Settings:             settings,
		CurrentQuestionIndex: -1,
		CreatedAt:            time.Now().UTC(),
	}
	// Session creation is the one synchronous write: no game code is
	// issued unless the durable record exists.
	if err := srv.sessions.CreateSession(context.Background(), sess); err != nil {
		log.Error().Err(err).Str("code", code).Msg("create session")
		return nil, errors.New("Failed to create game")
	}

	g := game.NewLiveGame(code, sess.ID, quiz, payload.HostID, hostConnID, settings)
	if err := srv.registry.Add(g); err != nil {
		// The durable record already exists; finish it so the code is not
		// reserved forever by a session no game will ever touch again.
		sessionID := sess.ID
		srv.wb.Enqueue("finish-orphaned-session", func(ctx context.Context) error {
			return srv.sessions.MarkFinished(ctx, sessionID, time.Now().UTC())
		})
		log.Error().Err(err).Str("code", code).Msg("register live game")
		return nil, errors.New("Failed to create game")
	}
	return g, nil
}

// finishGame flushes the final state, records activity, broadcasts the
// leaderboard, and schedules eviction of the live entry.
func (srv *Server) finishGame(io *socketio.Server, code string, g *game.LiveGame, res *game.GameResult) {
	sessionID := g.SessionID
	srv.wb.Enqueue("mark-finished", func(ctx context.Context) error {
		return srv.sessions.MarkFinished(ctx, sessionID, res.EndedAt)
	})

	for _, p := range res.Players {
		if p.UserID == "" {
			continue
		}
		userID := p.UserID
		won := p.Won
		xp := xpPlayed
		if won {
			xp = xpWin
		}
		srv.wb.Enqueue("record-activity", func(ctx context.Context) error {
			return srv.activity.RecordGamePlayed(ctx, userID, won, xp)
		})
	}

	if srv.cfg.ExportEnabled {
		exportFile := srv.cfg.ExportFile
		srv.wb.Enqueue("export-results", func(ctx context.Context) error {
			return game.ExportResult(exportFile, code, res)
		})
	}

	io.BroadcastToRoom("/", code, EventGameEnded, map[string]any{
		"leaderboard":    res.Leaderboard,
		"totalQuestions": res.TotalQuestions,
		"quizTitle":      res.QuizTitle,
	})
	srv.registry.ScheduleEvict(code)
	log.Info().Str("code", code).Int("players", len(res.Players)).Msg("game ended")
}

func (srv *Server) err(s socketio.Conn, message string) map[string]any {
	s.Emit(EventError, map[string]any{"message": message})
	return map[string]any{"error": message}
}

func errMessage(err error) string {
	switch err {
	case game.ErrGameNotFound:
		return "Game not found. Check the code and try again."
	case game.ErrNotHost:
		return "Not authorized"
	case game.ErrNotParticipant:
		return "You are not in this game"
	case game.ErrAlreadyFinished:
		return "You have already finished"
	case game.ErrStaleQuestion:
		return "Invalid question"
	case game.ErrDuplicateAnswer:
		return "Already answered"
	case game.ErrJoinClosed:
		return "Game already started"
	case game.ErrAlreadyStarted:
		return "Game already started"
	case game.ErrNotAcceptingAnswers:
		return "Game is not accepting answers"
	case game.ErrNoQuestions:
		return "Quiz has no questions"
	case game.ErrGameOver:
		return "Game already ended"
	default:
		return err.Error()
	}
}

func applyShuffle(quiz *game.Quiz, settings game.Settings) {
	if settings.ShuffleQuestions {
		rand.Shuffle(len(quiz.Questions), func(i, j int) {
			quiz.Questions[i], quiz.Questions[j] = quiz.Questions[j], quiz.Questions[i]
		})
	}
	if settings.ShuffleOptions {
		for _, q := range quiz.Questions {
			rand.Shuffle(len(q.Options), func(i, j int) {
				q.Options[i], q.Options[j] = q.Options[j], q.Options[i]
			})
		}
	}
}
