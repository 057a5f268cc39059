package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-engine-service/internal/app"
	"quiz-engine-service/internal/config"
	"quiz-engine-service/internal/domain"
	"quiz-engine-service/internal/infra/memory"
	pgstore "quiz-engine-service/internal/infra/postgres"
	redisstore "quiz-engine-service/internal/infra/redis"
	transport "quiz-engine-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 4*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var attempts app.AttemptRepository
	if redisClient != nil {
		attempts = redisstore.NewAttemptStore(redisClient, redisTTL)
	} else {
		attempts = memory.NewAttemptStore()
	}

	var sink app.ResultSink
	if pool != nil {
		sink = pgstore.NewResultSink(pool)
	}

	service := app.NewAttemptService(attempts, quizRepo, sink)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting assessment server on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes seeds a demo paper so the server is usable without Postgres.
func sampleQuizzes() map[string]domain.RawQuiz {
	thirty := 30
	return map[string]domain.RawQuiz{
		"demo-1": {
			Title:           "General Knowledge Demo",
			DurationMinutes: &thirty,
			Rules: map[string]any{
				"useSections":      true,
				"shuffleQuestions": true,
				"shuffleOptions":   true,
				"timingMode":       "overall",
				"optionEEnabled":   true,
			},
			Sections: []domain.RawSection{
				{ID: "s1", Title: "Arithmetic"},
				{ID: "s2", Title: "Geography"},
			},
			Questions: []domain.RawQuestion{
				{ID: "q1", Prompt: "What is 2 + 2?", Options: []byte(`["3","4","5","6"]`), Answer: []byte(`1`), SectionID: "s1"},
				{ID: "q2", Prompt: "What is 7 * 8?", Options: []byte(`["54","56","63","64"]`), Answer: []byte(`1`), SectionID: "s1"},
				{ID: "q3", Prompt: "Capital of France?", Options: []byte(`["Lyon","Paris","Nice","Lille"]`), Answer: []byte(`1`), SectionID: "s2"},
				{ID: "q4", Type: "fill", Prompt: "The largest ocean is the ____ Ocean.", Answer: []byte(`["Pacific"]`), SectionID: "s2"},
			},
		},
	}
}
