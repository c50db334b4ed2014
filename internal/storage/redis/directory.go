// Package redis mirrors the crowd listing into Redis for operational
// tooling. Nothing reads it back into the relay.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/crowd-relay/internal/crowd"
	"github.com/crowd-relay/internal/models"
)

// Options holds the Redis connection settings
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Directory writes crowd summaries to Redis. Each entry carries a TTL so a
// crashed relay's crowds expire on their own.
type Directory struct {
	client *goredis.Client
}

// NewDirectory connects to Redis and verifies the connection
func NewDirectory(ctx context.Context, opts Options) (*Directory, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Directory{client: client}, nil
}

// Publish stores summary under its crowd key for ttl
func (d *Directory) Publish(ctx context.Context, summary crowd.Summary, ttl time.Duration) error {
	data, err := encodeEntry(summary)
	if err != nil {
		return err
	}
	if err := d.client.Set(ctx, crowdKey(summary.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store crowd: %w", err)
	}
	return nil
}

// Withdraw deletes the entries of crowds that have ended
func (d *Directory) Withdraw(ctx context.Context, ids ...crowd.ID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = crowdKey(id)
	}
	if err := d.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete crowds: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (d *Directory) Close() error {
	return d.client.Close()
}

// crowdKey generates the Redis key for a crowd
func crowdKey(id crowd.ID) string {
	return fmt.Sprintf("crowd:%s", id)
}

func encodeEntry(summary crowd.Summary) ([]byte, error) {
	data, err := json.Marshal(models.CrowdListEntry{
		CrowdID:          summary.ID.String(),
		Name:             summary.Name,
		StartedTime:      summary.Started.UTC(),
		ParticipantCount: summary.Participants,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal crowd: %w", err)
	}
	return data, nil
}
