package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"
)

type RedisConfig struct {
	Addr        string
	Password    string
	KeyPrefix   string
	TTL         time.Duration
	DialTimeout time.Duration
}

// RedisBalanceCache stores balances as decimal strings under KeyPrefix+userID.
type RedisBalanceCache struct {
	client rueidis.Client
	config RedisConfig
}

func NewRedisBalanceCache(config RedisConfig) (*RedisBalanceCache, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("redis: no address configured")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "balance:"
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{config.Addr},
		Password:    config.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: failed to create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	return newRedisBalanceCache(client, config), nil
}

func newRedisBalanceCache(client rueidis.Client, config RedisConfig) *RedisBalanceCache {
	return &RedisBalanceCache{client: client, config: config}
}

func (r *RedisBalanceCache) GetBalance(ctx context.Context, userID string) (int64, error) {
	cmd := r.client.B().Get().Key(r.config.KeyPrefix + userID).Build()
	v, err := r.client.Do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return 0, ErrMiss
		}
		return 0, fmt.Errorf("redis get: %w", err)
	}

	balance, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis get: corrupt balance %q: %w", v, err)
	}
	return balance, nil
}

func (r *RedisBalanceCache) SetBalance(ctx context.Context, userID string, balance int64) error {
	key := r.config.KeyPrefix + userID
	value := strconv.FormatInt(balance, 10)

	var cmd rueidis.Completed
	if r.config.TTL > 0 {
		cmd = r.client.B().Set().Key(key).Value(value).Ex(r.config.TTL).Build()
	} else {
		cmd = r.client.B().Set().Key(key).Value(value).Build()
	}
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisBalanceCache) Close() error {
	r.client.Close()
	return nil
}
