package cli

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"quizdesk-service/internal/app"
	"quizdesk-service/internal/config"
	"quizdesk-service/internal/infra/memory"
	"quizdesk-service/internal/infra/postgres"
	redisinfra "quizdesk-service/internal/infra/redis"
)

// backends holds the storage and cache implementations picked from config. Without Postgres
// the in-memory store is used; without Redis the in-process cache and code reserver are.
type backends struct {
	store    app.Store
	quizzes  app.QuizRepository
	reserver app.CodeReserver

	db    *bun.DB
	pool  *pgxpool.Pool
	redis *redis.Client
}

func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}
	var loader app.QuizLoader

	if cfg.Postgres.URL != "" {
		b.db = openBun(cfg.Postgres.URL)
		b.store = postgres.NewStore(b.db)
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.close()
			return nil, err
		}
		b.pool = pool
		loader = postgres.NewQuizLoader(pool)
	} else {
		log.Warn("postgres url not configured, using in-memory store")
		store := memory.NewStore()
		b.store = store
		loader = store
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	reserveTTL := config.TTLDuration(cfg.Quiz.CodeReserveTTL, time.Minute)
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			b.close()
			return nil, err
		}
		b.quizzes = redisinfra.NewQuizRepository(b.redis, loader, quizTTL)
		b.reserver = redisinfra.NewCodeReserver(b.redis, reserveTTL)
	} else {
		b.quizzes = memory.NewQuizRepository(loader, quizTTL)
		b.reserver = memory.NewCodeReserver(reserveTTL)
	}
	return b, nil
}

func (b *backends) close() {
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			log.WithError(err).Warn("close redis")
		}
	}
	if b.pool != nil {
		b.pool.Close()
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			log.WithError(err).Warn("close postgres")
		}
	}
}

func openBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// configureLogging applies the log section; unknown levels fall back to info.
func configureLogging(cfg config.Config) {
	log.SetOutput(os.Stdout)
	if cfg.Log.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
