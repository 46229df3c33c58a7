// Package natsjournal stores the content repository event stream in a NATS
// JetStream key-value bucket, one key per event sequence.
package natsjournal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/c360studio/semstreams/pkg/retry"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/sitegeist/taxonomy/journal"
)

// DefaultBucket is the bucket used when none is configured.
const DefaultBucket = "TAXONOMY_EVENTS"

// Journal is a journal.Journal backed by a JetStream KV bucket.
type Journal struct {
	kv    jetstream.KeyValue
	retry retry.Config

	mu   sync.Mutex
	last uint64
}

var _ journal.Journal = (*Journal)(nil)

// New opens the bucket, creating it if needed.
func New(ctx context.Context, js jetstream.JetStream, bucket string) (*Journal, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	kv, err := getOrCreateBucket(ctx, js, bucket)
	if err != nil {
		return nil, fmt.Errorf("open journal bucket %s: %w", bucket, err)
	}

	j := &Journal{kv: kv, retry: retry.DefaultConfig()}
	keys, err := j.sortedKeys(ctx)
	if err != nil {
		return nil, err
	}
	if n := len(keys); n > 0 {
		last, err := strconv.ParseUint(keys[n-1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse journal key %q: %w", keys[n-1], err)
		}
		j.last = last
	}
	return j, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "Taxonomy content repository event journal",
		History:     1,
	})
}

// Append implements journal.Journal. Each event is created with Create so an
// existing sequence is never overwritten; transient failures are retried.
func (j *Journal) Append(ctx context.Context, events ...journal.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := journal.CheckOrder(j.last, events); err != nil {
		return err
	}

	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event %d: %w", e.Sequence, err)
		}
		key := journal.Key(e.Sequence)
		err = retry.Do(ctx, j.retry, func() error {
			_, err := j.kv.Create(ctx, key, data)
			if errors.Is(err, jetstream.ErrKeyExists) {
				return retry.NonRetryable(err)
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("store event %d: %w", e.Sequence, err)
		}
		j.last = e.Sequence
	}
	return nil
}

// Load implements journal.Journal.
func (j *Journal) Load(ctx context.Context) ([]journal.Event, error) {
	keys, err := j.sortedKeys(ctx)
	if err != nil {
		return nil, err
	}

	events := make([]journal.Event, 0, len(keys))
	for _, key := range keys {
		entry, err := j.kv.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("get event %s: %w", key, err)
		}
		var e journal.Event
		if err := json.Unmarshal(entry.Value(), &e); err != nil {
			return nil, fmt.Errorf("unmarshal event %s: %w", key, err)
		}
		events = append(events, e)
	}
	journal.SortBySequence(events)
	return events, nil
}

func (j *Journal) sortedKeys(ctx context.Context) ([]string, error) {
	keys, err := j.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list journal keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close implements journal.Journal. The connection is owned by the caller.
func (j *Journal) Close() error { return nil }
