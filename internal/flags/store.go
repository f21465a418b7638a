package flags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	indexKey    = "flags:index"
	valuePrefix = "flags:"
)

var keyRe = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)

// Store keeps boolean runtime switches in Redis. The direct swap route is
// gated by one of them.
type Store struct {
	client redis.Cmdable
	logger *logrus.Logger
}

func NewStore(client redis.Cmdable, logger *logrus.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{client: client, logger: logger}, nil
}

func ValidateKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("invalid flag key")
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, key string, value bool) (*Flag, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	flag := &Flag{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	b, err := json.Marshal(flag)
	if err != nil {
		return nil, fmt.Errorf("marshal flag: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, flagKey(key), b, 0)
	pipe.SAdd(ctx, indexKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("upsert flag: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"flag": key, "value": value}).Info("flag updated")
	return flag, nil
}

// SeedDefaults writes every entry of Defaults that is not already set.
func (s *Store) SeedDefaults(ctx context.Context) error {
	for key, value := range Defaults {
		flag := &Flag{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
		b, err := json.Marshal(flag)
		if err != nil {
			return fmt.Errorf("marshal flag: %w", err)
		}

		created, err := s.client.SetNX(ctx, flagKey(key), b, 0).Result()
		if err != nil {
			return fmt.Errorf("seed flag %s: %w", key, err)
		}
		if created {
			if err := s.client.SAdd(ctx, indexKey, key).Err(); err != nil {
				return fmt.Errorf("index flag %s: %w", key, err)
			}
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (*Flag, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	val, err := s.client.Get(ctx, flagKey(key)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get flag: %w", err)
	}

	var f Flag
	if err := json.Unmarshal([]byte(val), &f); err != nil {
		return nil, fmt.Errorf("unmarshal flag: %w", err)
	}
	return &f, nil
}

// Enabled reads a flag and falls back to def when it is unset or Redis
// cannot be reached. It never fails a caller.
func (s *Store) Enabled(ctx context.Context, key string, def bool) bool {
	f, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return def
	}
	if err != nil {
		s.logger.WithError(err).WithField("flag", key).Warn("flag read failed, using default")
		return def
	}
	return f.Value
}

func (s *Store) List(ctx context.Context) ([]*Flag, error) {
	keys, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list flags index: %w", err)
	}

	redisKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := ValidateKey(k); err != nil {
			continue
		}
		redisKeys = append(redisKeys, flagKey(k))
	}
	if len(redisKeys) == 0 {
		return []*Flag{}, nil
	}

	vals, err := s.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget flags: %w", err)
	}

	out := make([]*Flag, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var f Flag
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			continue
		}
		out = append(out, &f)
	}

	return out, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, flagKey(key))
	pipe.SRem(ctx, indexKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete flag: %w", err)
	}

	return nil
}

func flagKey(key string) string {
	return valuePrefix + key
}
