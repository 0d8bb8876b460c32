package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"quizdesk-service/internal/app"
	"quizdesk-service/internal/domain"
)

// QuizRepository caches questionnaire aggregates in Redis as JSON and falls back to a loader on
// a miss. Aggregates are stored as: SET quiz:{quizID}:aggregate {json} EX ttl
type QuizRepository struct {
	client *redis.Client
	loader app.QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

var _ app.QuizRepository = (*QuizRepository)(nil)

func NewQuizRepository(client *redis.Client, loader app.QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID int64) (domain.Questionnaire, error) {
	key := r.aggregateKey(quizID)
	if quiz, ok := r.cached(ctx, key); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.cached(ctx, key); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Questionnaire{}, err
		}

		payload, err := json.Marshal(quiz)
		if err != nil {
			return domain.Questionnaire{}, errors.Wrap(err, "encode quiz aggregate")
		}
		if err := r.client.Set(ctx, key, payload, r.ttlWithJitter()).Err(); err != nil {
			// a failed fill only costs the next reader another load
			log.WithError(err).WithField("quiz_id", quizID).Warn("quiz cache fill failed")
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Questionnaire{}, err
	}
	return result.(domain.Questionnaire), nil
}

// Invalidate deletes the cached aggregate.
func (r *QuizRepository) Invalidate(ctx context.Context, quizID int64) error {
	key := r.aggregateKey(quizID)
	r.sf.Forget(key)
	return errors.Wrap(r.client.Del(ctx, key).Err(), "invalidate quiz cache")
}

func (r *QuizRepository) cached(ctx context.Context, key string) (domain.Questionnaire, bool) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.WithError(err).WithField("key", key).Warn("quiz cache read failed")
		}
		return domain.Questionnaire{}, false
	}
	var quiz domain.Questionnaire
	if err := json.Unmarshal(payload, &quiz); err != nil {
		log.WithError(err).WithField("key", key).Warn("discarding undecodable quiz cache entry")
		return domain.Questionnaire{}, false
	}
	return quiz, true
}

func (r *QuizRepository) aggregateKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":aggregate"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
