package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quizdesk-service/internal/app"
	"quizdesk-service/internal/domain"
	"quizdesk-service/internal/infra/postgres"
	pgmigrations "quizdesk-service/internal/infra/postgres/migrations"
	infraredis "quizdesk-service/internal/infra/redis"
)

type env struct {
	db      *bun.DB
	store   *postgres.Store
	quizzes *infraredis.QuizRepository
	redis   *goredis.Client
}

func setup(t *testing.T, ctx context.Context) *env {
	t.Helper()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	t.Cleanup(pgCleanup)
	redisURL, redisCleanup := startRedis(t, ctx)
	t.Cleanup(redisCleanup)

	db := migrateDB(t, ctx, pgURL)
	t.Cleanup(func() { _ = db.Close() })

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { _ = redisClient.Close() })

	return &env{
		db:      db,
		store:   postgres.NewStore(db),
		quizzes: infraredis.NewQuizRepository(redisClient, postgres.NewQuizLoader(pool), 5*time.Minute),
		redis:   redisClient,
	}
}

func TestSubmitAttemptEndToEnd(t *testing.T) {
	ctx := context.Background()
	e := setup(t, ctx)

	catalog := app.NewCatalogService(e.store, e.quizzes, infraredis.NewCodeReserver(e.redis, time.Minute))
	questions := app.NewQuestionService(e.store, e.quizzes)
	attempts := app.NewAttemptService(e.store, e.quizzes)

	owner := domain.User{Email: "owner@example.com", PasswordHash: []byte("x"), Roles: []domain.Role{domain.RoleUser}, CreatedAt: time.Now().UTC()}
	if err := e.store.CreateUser(ctx, &owner); err != nil {
		t.Fatalf("create user: %v", err)
	}
	caller := domain.CallerFromUser(owner)

	quiz, err := catalog.CreateQuiz(ctx, caller, app.QuizInput{Title: "Integration"})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	q1, err := questions.AddQuestion(ctx, caller, quiz.ID, app.QuestionInput{
		Text:    "What is 2 + 2?",
		Answers: []app.AnswerInput{{Text: "3"}, {Text: "4", Correct: true}, {Text: "5"}},
	})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	q2, err := questions.AddQuestion(ctx, caller, quiz.ID, app.QuestionInput{
		Text:    "Which are even?",
		Answers: []app.AnswerInput{{Text: "2", Correct: true}, {Text: "3"}, {Text: "4", Correct: true}},
	})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}

	play, err := catalog.PlayableQuizByCode(ctx, nil, strings.ToLower(quiz.AccessCode))
	if err != nil {
		t.Fatalf("play by code: %v", err)
	}
	if len(play.Questions) != 2 || !play.Questions[1].MultipleChoice {
		t.Fatalf("unexpected play payload %+v", play)
	}
	if n, err := e.redis.Exists(ctx, fmt.Sprintf("quiz:%d:aggregate", quiz.ID)).Result(); err != nil || n != 1 {
		t.Fatalf("expected aggregate cached in redis, got %d (%v)", n, err)
	}

	res, err := attempts.SubmitAttempt(ctx, nil, quiz.ID, domain.Participant{FirstName: "Ann", LastName: "Lee"}, []domain.Selection{
		{QuestionID: q1.ID, AnswerID: q1.Answers[1].ID},
		{QuestionID: q2.ID, AnswerID: q2.Answers[0].ID},
		{QuestionID: q2.ID, AnswerID: q2.Answers[2].ID},
		{QuestionID: q2.ID, AnswerID: q1.Answers[0].ID},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.CorrectCount != 2 || res.TotalQuestions != 2 || res.Percentage != 100 || !res.Passed {
		t.Fatalf("unexpected result %+v", res)
	}

	details, err := attempts.GetAttemptResults(ctx, nil, res.AttemptID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(details.Questions) != 2 || len(details.Questions[1].SelectedAnswers) != 2 {
		t.Fatalf("unexpected breakdown %+v", details.Questions)
	}

	if err := catalog.DeleteQuiz(ctx, caller, quiz.ID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	if _, err := e.store.GetAttempt(ctx, res.AttemptID); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt removed by cascade, got %v", err)
	}
	if _, err := catalog.PlayableQuiz(ctx, nil, quiz.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected cache invalidated, got %v", err)
	}
}

func TestPostgresConstraints(t *testing.T) {
	ctx := context.Background()
	e := setup(t, ctx)

	u := domain.User{Email: "dup@example.com", PasswordHash: []byte("x"), CreatedAt: time.Now().UTC()}
	if err := e.store.CreateUser(ctx, &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	again := domain.User{Email: "dup@example.com", PasswordHash: []byte("x"), CreatedAt: time.Now().UTC()}
	if err := e.store.CreateUser(ctx, &again); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	q := domain.Questionnaire{Title: "One", AccessCode: "AAAAAA", Active: true, PassThreshold: 70, CreatedAt: time.Now().UTC(), CreatorID: u.ID}
	if err := e.store.CreateQuestionnaire(ctx, &q); err != nil {
		t.Fatalf("create questionnaire: %v", err)
	}
	clash := q
	clash.ID = 0
	if err := e.store.CreateQuestionnaire(ctx, &clash); !errors.Is(err, domain.ErrAccessCodeTaken) {
		t.Fatalf("expected ErrAccessCodeTaken, got %v", err)
	}
	exists, err := e.store.AccessCodeExists(ctx, "AAAAAA")
	if err != nil || !exists {
		t.Fatalf("expected code to exist, got %v (%v)", exists, err)
	}

	// a failing selected answer insert must take the attempt down with it
	now := time.Now().UTC()
	attempt := domain.Attempt{QuestionnaireID: q.ID, FirstName: "Ann", LastName: "Lee", StartedAt: now, FinishedAt: &now}
	err = e.store.WithinTx(ctx, func(tx app.Store) error {
		return tx.CreateAttempt(ctx, &attempt, []domain.SelectedAnswer{{QuestionID: 999999, AnswerID: 999999, AnsweredAt: now}})
	})
	if err == nil {
		t.Fatal("expected foreign key failure")
	}
	list, err := e.store.ListAttempts(ctx, app.AttemptFilter{QuestionnaireID: q.ID})
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected rollback, found %d attempts", len(list))
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
