package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

const doctorSetKey = "directory:doctors"

// RedisDirectory stores profiles as JSON blobs in Redis.
type RedisDirectory struct {
	redis *redis.Client
}

// NewRedisDirectory creates a Redis-backed directory.
func NewRedisDirectory(client *redis.Client) *RedisDirectory {
	if client == nil {
		panic("directory: redis client required")
	}
	return &RedisDirectory{redis: client}
}

func (d *RedisDirectory) key(id string) string {
	return "directory:profile:" + id
}

// Put stores the profile and keeps the doctor index in sync.
func (d *RedisDirectory) Put(ctx context.Context, p *Profile) error {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return errors.New("directory: profile id required")
	}
	if !p.Role.Valid() {
		return fmt.Errorf("directory: invalid role %q", p.Role)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("directory: marshal profile: %w", err)
	}

	pipe := d.redis.TxPipeline()
	pipe.Set(ctx, d.key(p.ID), data, 0)
	if p.IsDoctor() {
		pipe.SAdd(ctx, doctorSetKey, p.ID)
	} else {
		pipe.SRem(ctx, doctorSetKey, p.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("directory: put profile: %w", err)
	}
	return nil
}

// GetProfile loads a profile by id.
func (d *RedisDirectory) GetProfile(ctx context.Context, id string) (*Profile, error) {
	data, err := d.redis.Get(ctx, d.key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("directory: get profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("directory: unmarshal profile: %w", err)
	}
	return &p, nil
}

// ListDoctors returns every indexed doctor ordered by name. Ids whose blob has
// disappeared are skipped.
func (d *RedisDirectory) ListDoctors(ctx context.Context) ([]*Profile, error) {
	ids, err := d.redis.SMembers(ctx, doctorSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("directory: list doctor ids: %w", err)
	}
	if len(ids) == 0 {
		return []*Profile{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = d.key(id)
	}
	values, err := d.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("directory: load doctors: %w", err)
	}

	out := make([]*Profile, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var p Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("directory: unmarshal doctor: %w", err)
		}
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName == out[j].FullName {
			return out[i].ID < out[j].ID
		}
		return out[i].FullName < out[j].FullName
	})
	return out, nil
}
