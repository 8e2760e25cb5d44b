package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/darkomike/bloggie-sub001/api"
)

// Put JSON-encodes v and stores it. A nil pointer stores JSON null.
func Put[T any](ctx context.Context, c api.Cache, namespace, key string, v T, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", namespace, key, err)
	}
	c.Set(ctx, namespace, key, data, ttl)
	return nil
}

/*
Get decodes the entry into T. found is false when nothing is cached; a cached
JSON null decodes into the zero value with found true.
*/
func Get[T any](ctx context.Context, c api.Cache, namespace, key string) (out T, found bool, err error) {
	raw, ok := c.Get(ctx, namespace, key)
	if !ok {
		return out, false, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, true, fmt.Errorf("decode %s/%s: %w", namespace, key, err)
	}
	return out, true, nil
}
