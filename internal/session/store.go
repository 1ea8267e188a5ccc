package session

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/eleven-am/proctor-backend/internal/shared"
	"github.com/redis/go-redis/v9"
)

const (
	sessionTTL = 12 * time.Hour
	metricsTTL = 7 * 24 * time.Hour
)

type Store struct {
	redis *redis.Client
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = shared.NewID("sess_")
	}
	sess.Status = StatusActive
	sess.StartedAt = time.Now()
	sess.LastActiveAt = time.Now()

	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	return s.redis.Set(ctx, sess.RedisKey(), data, sessionTTL).Err()
}

func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	data, err := s.redis.Get(ctx, "proctor:session:"+id).Bytes()
	if err == redis.Nil {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess *Session) error {
	sess.LastActiveAt = time.Now()
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, sess.RedisKey(), data, sessionTTL).Err()
}

func (s *Store) EndSession(ctx context.Context, id string, status Status) error {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	sess.Status = status
	return s.UpdateSession(ctx, sess)
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.redis.Del(ctx, "proctor:session:"+id).Err()
}

// GetActiveSessions lists active sessions, optionally scoped to one exam.
func (s *Store) GetActiveSessions(ctx context.Context, examID string) ([]*Session, error) {
	keys, err := s.redis.Keys(ctx, "proctor:session:sess_*").Result()
	if err != nil {
		return nil, err
	}

	var sessions []*Session
	for _, key := range keys {
		data, err := s.redis.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue
		}
		if sess.Status != StatusActive {
			continue
		}
		if examID != "" && sess.ExamID != examID {
			continue
		}
		sessions = append(sessions, &sess)
	}
	return sessions, nil
}

func (s *Store) IncrementMetric(ctx context.Context, examID string, field string, value int64) error {
	now := time.Now().UTC()
	key := MetricsRedisKey(examID, now.Format("2006-01-02"), now.Hour())

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, key, field, value)
	pipe.Expire(ctx, key, metricsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) IncrementSessions(ctx context.Context, examID string) error {
	return s.IncrementMetric(ctx, examID, "sessions", 1)
}

func (s *Store) IncrementViolations(ctx context.Context, examID string) error {
	return s.IncrementMetric(ctx, examID, "violations", 1)
}

func (s *Store) IncrementFramesOK(ctx context.Context, examID string) error {
	return s.IncrementMetric(ctx, examID, "frames_ok", 1)
}

func (s *Store) IncrementFramesFailed(ctx context.Context, examID string) error {
	return s.IncrementMetric(ctx, examID, "frames_failed", 1)
}

func (s *Store) IncrementDepletions(ctx context.Context, examID string) error {
	return s.IncrementMetric(ctx, examID, "depletions", 1)
}

// GetMetrics reads back the hourly counters for the trailing window.
func (s *Store) GetMetrics(ctx context.Context, examID string, hours int) ([]*Metrics, error) {
	now := time.Now().UTC()
	var metrics []*Metrics

	for i := 0; i < hours; i++ {
		t := now.Add(-time.Duration(i) * time.Hour)
		key := MetricsRedisKey(examID, t.Format("2006-01-02"), t.Hour())

		data, err := s.redis.HGetAll(ctx, key).Result()
		if err != nil || len(data) == 0 {
			continue
		}

		m := &Metrics{
			ExamID: examID,
			Date:   t.Format("2006-01-02"),
			Hour:   t.Hour(),
		}

		if v, ok := data["sessions"]; ok {
			m.Sessions, _ = strconv.ParseInt(v, 10, 64)
		}
		if v, ok := data["violations"]; ok {
			m.Violations, _ = strconv.ParseInt(v, 10, 64)
		}
		if v, ok := data["frames_ok"]; ok {
			m.FramesOK, _ = strconv.ParseInt(v, 10, 64)
		}
		if v, ok := data["frames_failed"]; ok {
			m.FramesFailed, _ = strconv.ParseInt(v, 10, 64)
		}
		if v, ok := data["depletions"]; ok {
			m.Depletions, _ = strconv.ParseInt(v, 10, 64)
		}

		metrics = append(metrics, m)
	}

	return metrics, nil
}
