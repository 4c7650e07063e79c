// Package redis keeps the scan control flags and locks in Redis, so a scan
// can be paused or aborted from another process.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/sweep/pkg/ports"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "sweep:"

// Controller implements ports.Controller on top of Redis keys.
type Controller struct {
	client backend.UniversalClient
	prefix string
	scan   string
	ttl    time.Duration
}

var _ ports.Controller = (*Controller)(nil)

type Option func(*Controller)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *Controller) {
		c.prefix = prefix
	}
}

// WithTTL expires the flags and progress after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *Controller) {
		c.ttl = ttl
	}
}

// New connects to address and returns a controller for the named scan.
func New(address, password string, db int, scan string, opts ...Option) *Controller {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, scan, opts...)
}

// NewFromClient creates a controller for the named scan from an existing client.
func NewFromClient(client backend.UniversalClient, scan string, opts ...Option) *Controller {
	c := &Controller{
		client: client,
		prefix: DefaultPrefix,
		scan:   scan,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) key(name string) string {
	return c.prefix + "scan:" + c.scan + ":" + name
}

func (c *Controller) Pause(ctx context.Context) error {
	return c.raise(ctx, "paused")
}

func (c *Controller) Resume(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key("paused")).Err(); err != nil {
		return fmt.Errorf("redis resume: %w", err)
	}
	return nil
}

func (c *Controller) Abort(ctx context.Context) error {
	return c.raise(ctx, "aborted")
}

func (c *Controller) Paused(ctx context.Context) (bool, error) {
	return c.isSet(ctx, "paused")
}

func (c *Controller) Aborted(ctx context.Context) (bool, error) {
	return c.isSet(ctx, "aborted")
}

func (c *Controller) Reset(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key("paused"), c.key("aborted")).Err(); err != nil {
		return fmt.Errorf("redis reset: %w", err)
	}
	return nil
}

func (c *Controller) SetProgress(ctx context.Context, completed, total int) error {
	key := c.key("progress")
	_, err := c.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.HSet(ctx, key, "completed", completed, "total", total)
		if c.ttl > 0 {
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set progress: %w", err)
	}
	return nil
}

func (c *Controller) Progress(ctx context.Context) (int, int, error) {
	fields, err := c.client.HGetAll(ctx, c.key("progress")).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis progress: %w", err)
	}
	completed, err := atoi(fields["completed"])
	if err != nil {
		return 0, 0, err
	}
	total, err := atoi(fields["total"])
	if err != nil {
		return 0, 0, err
	}
	return completed, total, nil
}

func (c *Controller) raise(ctx context.Context, flag string) error {
	if err := c.client.Set(ctx, c.key(flag), "1", c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", flag, err)
	}
	return nil
}

func (c *Controller) isSet(ctx context.Context, flag string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(flag)).Result()
	if err != nil {
		return false, fmt.Errorf("redis read %s: %w", flag, err)
	}
	return n > 0, nil
}

func atoi(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("corrupt progress value %q: %w", s, err)
	}
	return n, nil
}
