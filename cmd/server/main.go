package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/quizsmith/quizsmith/internal/config"
	"github.com/quizsmith/quizsmith/internal/game"
	"github.com/quizsmith/quizsmith/internal/store"
	"github.com/quizsmith/quizsmith/internal/store/sqlite"
	"github.com/quizsmith/quizsmith/internal/ws"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
		seedDemo    = flag.Bool("seed-demo", false, "Insert a demo quiz into the catalog and exit")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Quizsmith - Live multiplayer quiz server

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)
  --seed-demo     Insert a demo quiz into the catalog and exit

Environment Variables:
  PORT             Port to listen on (default: 8080)
  DATABASE_PATH    SQLite database file (default: ./quizsmith.db)
  PUBLIC_BASE_URL  Base URL used in join QR codes (default: http://localhost:8080)
  EVICT_DELAY      Grace window before evicting finished games (default: 60s)
  EXPORT_ENABLED   Append final leaderboards to a text file (default: false)
  EXPORT_FILE      Path of the results file (default: ./quizsmith-results.txt)

Visit http://localhost:8080/health after starting the server.
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("Quizsmith %s\n", version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	port := *portFlag
	if port == "" {
		port = cfg.Port
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	st, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	if *seedDemo {
		quizID, err := seedDemoQuiz(st)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("seeded demo quiz %s\n", quizID)
		return
	}

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	registry := game.NewRegistry(cfg.EvictDelay)
	wb := store.NewWriteBehind(256)
	defer wb.Close()

	sock := ws.New(registry, st, st, st, wb, cfg)
	io := sock.Mount(r)
	defer io.Close()

	// Lobby lookup for join screens; live registry only, a missing code
	// and an evicted one look the same.
	r.GET("/api/games/:code", func(c *gin.Context) {
		g, err := registry.Get(c.Param("code"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"gameCode":         g.Code,
			"status":           g.CurrentStatus(),
			"quizTitle":        g.Quiz.Title,
			"totalQuestions":   g.Quiz.TotalQuestions,
			"participantCount": g.ParticipantCount(),
		})
	})

	// QR code encoding the join URL, for the lobby screen.
	r.GET("/api/games/:code/qr", func(c *gin.Context) {
		code := c.Param("code")
		if _, err := registry.Get(code); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			return
		}
		joinURL := fmt.Sprintf("%s/join?code=%s", cfg.PublicBaseURL, code)
		png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render qr code"})
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})

	log.Printf("listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}

func seedDemoQuiz(st *sqlite.Store) (string, error) {
	quiz := &game.Quiz{
		ID:     uuid.NewString(),
		Title:  "Quizsmith Demo Quiz",
		Status: "completed",
		Questions: []game.Question{
			{
				Text:          "What is the capital of France?",
				Options:       []string{"Paris", "Lyon", "Marseille", "Nice"},
				CorrectAnswer: "Paris",
				Explanation:   "Paris has been the capital since 987.",
			},
			{
				Text:          "Which planet is known as the Red Planet?",
				Options:       []string{"Venus", "Mars", "Jupiter", "Saturn"},
				CorrectAnswer: "Mars",
				Explanation:   "Iron oxide gives Mars its reddish color.",
			},
			{
				Text:          "How many continents are there?",
				Options:       []string{"5", "6", "7", "8"},
				CorrectAnswer: "7",
				Explanation:   "By the most common model: seven.",
			},
		},
	}
	if err := st.SeedQuiz(context.Background(), quiz); err != nil {
		return "", err
	}
	return quiz.ID, nil
}
