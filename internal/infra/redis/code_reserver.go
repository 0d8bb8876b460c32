package redis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"quizdesk-service/internal/app"
)

// CodeReserver claims access codes across instances with SET NX and a TTL.
// A crashed creator's reservation simply expires.
type CodeReserver struct {
	client *redis.Client
	ttl    time.Duration
}

var _ app.CodeReserver = (*CodeReserver)(nil)

func NewCodeReserver(client *redis.Client, ttl time.Duration) *CodeReserver {
	return &CodeReserver{client: client, ttl: ttl}
}

func (r *CodeReserver) Reserve(ctx context.Context, code string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(code), "1", r.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "reserve access code")
	}
	return ok, nil
}

func (r *CodeReserver) Release(ctx context.Context, code string) {
	if err := r.client.Del(ctx, r.key(code)).Err(); err != nil {
		log.WithError(err).WithField("code", code).Warn("release access code")
	}
}

func (r *CodeReserver) key(code string) string {
	return "quiz:code:" + code
}
