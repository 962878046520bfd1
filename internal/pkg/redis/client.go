// internal/pkg/redis/client.go
package redis

import (
	"context"
	"fmt"
	"time"

	"partsmarket/internal/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
)

// Client 封装 go-redis 的 UniversalClient (单机或集群)
type Client struct {
	client goredis.UniversalClient
}

// NewClient 连接 addrs 并执行一次 PING
func NewClient(ctx context.Context, addrs []string) (*Client, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("redis: no address configured")
	}
	rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:        addrs,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	c := &Client{client: rdb}
	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	logger.Ctx(ctx).Info().Strs("addrs", addrs).Msg("✅ Connected to Redis.")
	return c, nil
}

// Wrap 复用一个已有的客户端 (测试中用 miniredis)
func Wrap(rdb goredis.UniversalClient) *Client {
	return &Client{client: rdb}
}

func (c *Client) GetClient() goredis.UniversalClient {
	return c.client
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
