package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/quizsmith/quizsmith/internal/game"
	"github.com/quizsmith/quizsmith/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testSession(id, code string) *store.Session {
	return &store.Session{
		ID:                   id,
		GameCode:             code,
		HostID:               "host-1",
		QuizID:               "quiz-1",
		Status:               game.StatusLobby,
		Settings:             game.Settings{}.WithDefaults(),
		CurrentQuestionIndex: -1,
		CreatedAt:            time.Now().UTC(),
	}
}

func TestGenerateCodeFormat(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		code, err := st.GenerateCode(ctx)
		if err != nil {
			t.Fatalf("generate code: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6-digit code, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("expected numeric code, got %q", code)
			}
		}
	}
}

func TestSessionRoundtrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	sess := testSession("sess-1", "482951")
	sess.Settings.AllowLateJoin = true
	if err := st.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := st.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.GameCode != "482951" {
		t.Fatalf("expected code 482951, got %s", got.GameCode)
	}
	if got.Status != game.StatusLobby {
		t.Fatalf("expected lobby status, got %s", got.Status)
	}
	if !got.Settings.AllowLateJoin {
		t.Fatal("late-join setting should round-trip")
	}
	if got.Settings.PointsPerQuestion != game.DefaultPointsPerQuestion {
		t.Fatalf("expected default max points, got %d", got.Settings.PointsPerQuestion)
	}
}

func TestParticipantsAndStats(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.CreateSession(ctx, testSession("sess-1", "111111")); err != nil {
		t.Fatalf("create session: %v", err)
	}

	for _, p := range []store.Participant{
		{Nickname: "Alice", ConnectionID: "conn-1", UserID: "user-1", JoinedAt: time.Now().UTC()},
		{Nickname: "Bob", ConnectionID: "conn-2", JoinedAt: time.Now().UTC()},
	} {
		if err := st.AppendParticipant(ctx, "sess-1", p); err != nil {
			t.Fatalf("append participant %s: %v", p.Nickname, err)
		}
	}

	if err := st.RecordAnswer(ctx, "sess-1", "conn-1", 1000, game.Answer{
		QuestionIndex: 0, Answer: "A", IsCorrect: true, TimeMs: 1200, PointsEarned: 1000,
	}); err != nil {
		t.Fatalf("record answer: %v", err)
	}

	got, err := st.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.TotalParticipants != 2 {
		t.Fatalf("expected 2 participants in stats, got %d", got.TotalParticipants)
	}
	if got.AverageScore != 500 {
		t.Fatalf("expected average score 500, got %d", got.AverageScore)
	}
	if len(got.Participants) != 2 {
		t.Fatalf("expected 2 roster entries, got %d", len(got.Participants))
	}
	alice := got.Participants[0]
	if alice.Nickname != "Alice" || alice.Score != 1000 {
		t.Fatalf("unexpected first participant: %+v", alice)
	}
	if len(alice.Answers) != 1 || alice.Answers[0].PointsEarned != 1000 {
		t.Fatalf("unexpected answers: %+v", alice.Answers)
	}
}

func TestDuplicateAnswerRejectedByStore(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.CreateSession(ctx, testSession("sess-1", "111111")); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := st.AppendParticipant(ctx, "sess-1", store.Participant{
		Nickname: "Alice", ConnectionID: "conn-1", JoinedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("append participant: %v", err)
	}

	a := game.Answer{QuestionIndex: 0, Answer: "A", IsCorrect: true, PointsEarned: 1000}
	if err := st.RecordAnswer(ctx, "sess-1", "conn-1", 1000, a); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := st.RecordAnswer(ctx, "sess-1", "conn-1", 2000, a); err == nil {
		t.Fatal("second answer at the same index must be rejected")
	}
}

func TestSessionLifecycleMarks(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.CreateSession(ctx, testSession("sess-1", "111111")); err != nil {
		t.Fatalf("create session: %v", err)
	}

	startedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := st.MarkStarted(ctx, "sess-1", startedAt); err != nil {
		t.Fatalf("mark started: %v", err)
	}
	got, _ := st.GetSession(ctx, "sess-1")
	if got.Status != game.StatusPlaying {
		t.Fatalf("expected playing, got %s", got.Status)
	}
	if !got.StartedAt.Equal(startedAt) {
		t.Fatalf("expected startedAt %v, got %v", startedAt, got.StartedAt)
	}

	if err := st.MarkPaused(ctx, "sess-1"); err != nil {
		t.Fatalf("mark paused: %v", err)
	}
	got, _ = st.GetSession(ctx, "sess-1")
	if got.Status != game.StatusPaused {
		t.Fatalf("expected paused, got %s", got.Status)
	}

	endedAt := startedAt.Add(5 * time.Minute)
	if err := st.MarkFinished(ctx, "sess-1", endedAt); err != nil {
		t.Fatalf("mark finished: %v", err)
	}
	got, _ = st.GetSession(ctx, "sess-1")
	if got.Status != game.StatusFinished {
		t.Fatalf("expected finished, got %s", got.Status)
	}
	if !got.EndedAt.Equal(endedAt) {
		t.Fatalf("expected endedAt %v, got %v", endedAt, got.EndedAt)
	}
}

func TestQuizCatalogRoundtrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	quiz := &game.Quiz{
		ID:     "quiz-1",
		Title:  "Geography",
		Status: "completed",
		Questions: []game.Question{
			{Text: "Capital of France?", Options: []string{"Paris", "Lyon"}, CorrectAnswer: "Paris", Explanation: "Seine"},
			{Text: "Capital of Japan?", Options: []string{"Kyoto", "Tokyo"}, CorrectAnswer: "Tokyo"},
		},
	}
	if err := st.SeedQuiz(ctx, quiz); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}

	got, err := st.GetQuizByID(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if got.Title != "Geography" || got.TotalQuestions != 2 {
		t.Fatalf("unexpected quiz: %+v", got)
	}
	if got.Questions[0].CorrectAnswer != "Paris" {
		t.Fatalf("unexpected first question: %+v", got.Questions[0])
	}
	if len(got.Questions[1].Options) != 2 || got.Questions[1].Options[1] != "Tokyo" {
		t.Fatalf("options should round-trip: %+v", got.Questions[1].Options)
	}

	if _, err := st.GetQuizByID(ctx, "missing"); err == nil {
		t.Fatal("missing quiz should error")
	}
}

func TestDailyActivityAccumulates(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.RecordGamePlayed(ctx, "user-1", true, 100); err != nil {
		t.Fatalf("record win: %v", err)
	}
	if err := st.RecordGamePlayed(ctx, "user-1", false, 30); err != nil {
		t.Fatalf("record loss: %v", err)
	}

	date := time.Now().UTC().Format("2006-01-02")
	games, wins, xp, err := st.DailyActivity(ctx, "user-1", date)
	if err != nil {
		t.Fatalf("load activity: %v", err)
	}
	if games != 2 || wins != 1 || xp != 130 {
		t.Fatalf("expected 2 games, 1 win, 130 xp; got %d/%d/%d", games, wins, xp)
	}

	games, wins, xp, err = st.DailyActivity(ctx, "user-2", date)
	if err != nil {
		t.Fatalf("load missing activity: %v", err)
	}
	if games != 0 || wins != 0 || xp != 0 {
		t.Fatal("missing rows should read as zeroes")
	}
}
