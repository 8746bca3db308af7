package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiaot623/pairtalk/internal/domain"
)

// retiredVersionTTL keeps a replaced pairing readable for in-flight readers.
const retiredVersionTTL = 30 * time.Second

// RedisStore implements Store on top of Redis. Each pairing version lives
// under its own keys; the current version is a single pointer key.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis store and checks connectivity.
func NewRedisStore(ctx context.Context, client *redis.Client, prefix string) (*RedisStore, error) {
	if prefix == "" {
		prefix = "pairtalk"
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) key(parts ...interface{}) string {
	k := s.prefix
	for _, p := range parts {
		k += fmt.Sprintf(":%v", p)
	}
	return k
}

func (s *RedisStore) versionKeys(version int64) (meta, pairs, members string) {
	return s.key("pairing", version, "meta"), s.key("pairing", version, "pairs"), s.key("pairing", version, "members")
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// ReplaceRoster overwrites the stored roster.
func (s *RedisStore) ReplaceRoster(ctx context.Context, names []string) error {
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}
	return domain.NewStorageError("replace roster", s.client.Set(ctx, s.key("roster"), data, 0).Err())
}

// GetRoster returns the roster in upload order.
func (s *RedisStore) GetRoster(ctx context.Context) ([]string, error) {
	data, err := s.client.Get(ctx, s.key("roster")).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrMissingRoster
	}
	if err != nil {
		return nil, domain.NewStorageError("get roster", err)
	}
	names := []string{}
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	return names, nil
}

// ReplacePairing writes the new version in one MULTI/EXEC and then swaps
// the current pointer. Old versions expire instead of being deleted.
func (s *RedisStore) ReplacePairing(ctx context.Context, pairing *domain.Pairing) error {
	version, err := s.client.Incr(ctx, s.key("pairing", "seq")).Result()
	if err != nil {
		return domain.NewStorageError("replace pairing", err)
	}
	if err := preparePairing(pairing, version, time.Now()); err != nil {
		return err
	}

	meta := *pairing
	meta.Pairs = nil
	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode pairing: %w", err)
	}
	pairValues := make(map[string]interface{}, len(pairing.Pairs))
	memberValues := make(map[string]interface{}, len(pairing.Pairs)*2)
	for _, p := range pairing.Pairs {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode pair: %w", err)
		}
		pairValues[p.PairID] = data
		for _, name := range p.Members() {
			memberValues[name] = p.PairID
		}
	}

	metaKey, pairsKey, membersKey := s.versionKeys(version)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, metaKey, metaData, 0)
		if len(pairValues) > 0 {
			pipe.HSet(ctx, pairsKey, pairValues)
			pipe.HSet(ctx, membersKey, memberValues)
		}
		return nil
	})
	if err != nil {
		return domain.NewStorageError("replace pairing", err)
	}

	previous, err := s.client.GetSet(ctx, s.key("pairing", "current"), version).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.NewStorageError("replace pairing", err)
	}
	if previous > 0 && previous != version {
		s.retire(ctx, previous, retiredVersionTTL)
	}
	return nil
}

func (s *RedisStore) retire(ctx context.Context, version int64, ttl time.Duration) {
	metaKey, pairsKey, membersKey := s.versionKeys(version)
	_, _ = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range []string{metaKey, pairsKey, membersKey} {
			if ttl > 0 {
				pipe.Expire(ctx, k, ttl)
			} else {
				pipe.Del(ctx, k)
			}
		}
		return nil
	})
}

func (s *RedisStore) currentVersion(ctx context.Context) (int64, error) {
	v, err := s.client.Get(ctx, s.key("pairing", "current")).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// GetPairing returns the visible pairing, or nil if none was generated.
func (s *RedisStore) GetPairing(ctx context.Context) (*domain.Pairing, error) {
	version, err := s.currentVersion(ctx)
	if err != nil {
		return nil, domain.NewStorageError("get pairing", err)
	}
	if version == 0 {
		return nil, nil
	}

	metaKey, _, _ := s.versionKeys(version)
	data, err := s.client.Get(ctx, metaKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStorageError("get pairing", err)
	}
	var pairing domain.Pairing
	if err := json.Unmarshal(data, &pairing); err != nil {
		return nil, fmt.Errorf("decode pairing: %w", err)
	}
	pairs, err := s.pairsOf(ctx, version)
	if err != nil {
		return nil, domain.NewStorageError("get pairing", err)
	}
	pairing.Pairs = pairs
	return &pairing, nil
}

func (s *RedisStore) pairsOf(ctx context.Context, version int64) ([]domain.Pair, error) {
	_, pairsKey, _ := s.versionKeys(version)
	raw, err := s.client.HGetAll(ctx, pairsKey).Result()
	if err != nil {
		return nil, err
	}
	pairs := make([]domain.Pair, 0, len(raw))
	for _, v := range raw {
		var p domain.Pair
		if err := json.Unmarshal([]byte(v), &p); err != nil {
			return nil, fmt.Errorf("decode pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Position < pairs[j].Position })
	return pairs, nil
}

// ListPairs returns the pairs of the visible pairing in generation order.
func (s *RedisStore) ListPairs(ctx context.Context) ([]domain.Pair, error) {
	version, err := s.currentVersion(ctx)
	if err != nil {
		return nil, domain.NewStorageError("list pairs", err)
	}
	if version == 0 {
		return []domain.Pair{}, nil
	}
	pairs, err := s.pairsOf(ctx, version)
	if err != nil {
		return nil, domain.NewStorageError("list pairs", err)
	}
	return pairs, nil
}

func (s *RedisStore) getPair(ctx context.Context, version int64, pairID string) (*domain.Pair, error) {
	_, pairsKey, _ := s.versionKeys(version)
	data, err := s.client.HGet(ctx, pairsKey, pairID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrPairNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get pair", err)
	}
	var p domain.Pair
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode pair: %w", err)
	}
	return &p, nil
}

// GetPair retrieves a visible pair by id.
func (s *RedisStore) GetPair(ctx context.Context, pairID string) (*domain.Pair, error) {
	version, err := s.currentVersion(ctx)
	if err != nil {
		return nil, domain.NewStorageError("get pair", err)
	}
	if version == 0 {
		return nil, domain.ErrPairNotFound
	}
	return s.getPair(ctx, version, pairID)
}

// FindPairByParticipant looks the name up in the membership hash.
func (s *RedisStore) FindPairByParticipant(ctx context.Context, name string) (*domain.Pair, error) {
	version, err := s.currentVersion(ctx)
	if err != nil {
		return nil, domain.NewStorageError("find pair", err)
	}
	if version == 0 {
		return nil, domain.ErrUnassignedParticipant
	}
	_, _, membersKey := s.versionKeys(version)
	pairID, err := s.client.HGet(ctx, membersKey, name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrUnassignedParticipant
	}
	if err != nil {
		return nil, domain.NewStorageError("find pair", err)
	}
	pair, err := s.getPair(ctx, version, pairID)
	if errors.Is(err, domain.ErrPairNotFound) {
		return nil, domain.ErrUnassignedParticipant
	}
	return pair, err
}

// UpdatePairTopic rewrites the topic of a visible pair. Concurrent updates
// of the same pair are last-write-wins.
func (s *RedisStore) UpdatePairTopic(ctx context.Context, pairID, topic string) error {
	version, err := s.currentVersion(ctx)
	if err != nil {
		return domain.NewStorageError("update topic", err)
	}
	if version == 0 {
		return domain.ErrPairNotFound
	}
	pair, err := s.getPair(ctx, version, pairID)
	if err != nil {
		return err
	}
	pair.Topic = topic
	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("encode pair: %w", err)
	}
	_, pairsKey, _ := s.versionKeys(version)
	return domain.NewStorageError("update topic", s.client.HSet(ctx, pairsKey, pairID, data).Err())
}

// DeleteAllPairs removes the visible pairing.
func (s *RedisStore) DeleteAllPairs(ctx context.Context) error {
	version, err := s.currentVersion(ctx)
	if err != nil {
		return domain.NewStorageError("delete pairs", err)
	}
	if err := s.client.Del(ctx, s.key("pairing", "current")).Err(); err != nil {
		return domain.NewStorageError("delete pairs", err)
	}
	if version > 0 {
		s.retire(ctx, version, 0)
	}
	return nil
}

// GetSettings returns the saved settings, or nil if none were saved.
func (s *RedisStore) GetSettings(ctx context.Context) (*domain.Settings, error) {
	data, err := s.client.Get(ctx, s.key("settings")).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStorageError("get settings", err)
	}
	var settings domain.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &settings, nil
}

// SaveSettings stores the settings, replacing any previous ones.
func (s *RedisStore) SaveSettings(ctx context.Context, settings *domain.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return domain.NewStorageError("save settings", s.client.Set(ctx, s.key("settings"), data, 0).Err())
}
