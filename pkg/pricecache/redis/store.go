// Package redis stores cached spot prices in a shared Redis instance, one
// key namespace per user.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/hallmark-app/hallmark/pkg/models"
)

// Store keeps each PriceRecord as JSON under hallmark:<user>:price:<symbol>.
// Keys never expire; staleness is decided by the cache, not by Redis.
type Store struct {
	client *redis.Client
	user   string
}

// New connects to Redis and checks the connection.
func New(ctx context.Context, addr, password string, db int, user string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Store{client: client, user: user}, nil
}

func (s *Store) key(symbol models.Symbol) string {
	return fmt.Sprintf("hallmark:%s:price:%s", s.user, symbol)
}

// Get returns the record for symbol, if any.
func (s *Store) Get(ctx context.Context, symbol models.Symbol) (models.PriceRecord, bool, error) {
	data, err := s.client.Get(ctx, s.key(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.PriceRecord{}, false, nil
	}
	if err != nil {
		return models.PriceRecord{}, false, fmt.Errorf("get price %s from redis: %w", symbol, err)
	}

	var rec models.PriceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.PriceRecord{}, false, fmt.Errorf("decode price %s: %w", symbol, err)
	}
	return rec, true, nil
}

// Put overwrites the record for rec.Symbol.
func (s *Store) Put(ctx context.Context, rec models.PriceRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode price %s: %w", rec.Symbol, err)
	}
	if err := s.client.Set(ctx, s.key(rec.Symbol), data, 0).Err(); err != nil {
		return fmt.Errorf("put price %s to redis: %w", rec.Symbol, err)
	}
	return nil
}

// List returns every record in the user's namespace ordered by symbol.
func (s *Store) List(ctx context.Context) ([]models.PriceRecord, error) {
	var recs []models.PriceRecord

	iter := s.client.Scan(ctx, 0, fmt.Sprintf("hallmark:%s:price:*", s.user), 0).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s from redis: %w", iter.Val(), err)
		}
		var rec models.PriceRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Val(), err)
		}
		recs = append(recs, rec)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan redis keys: %w", err)
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].Symbol < recs[j].Symbol })
	return recs, nil
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
