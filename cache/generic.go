package cache

import "context"

// GetValue reads key and decodes it into V.
// The bool is false when the key is absent, expired or undecodable.
func GetValue[V any](ctx context.Context, c AppCache, key, partition string) (V, bool, error) {
	var zero V
	data, err := c.GetRawContext(ctx, key, partition)
	if err != nil || data == nil {
		return zero, false, err
	}
	var v V
	if err := c.Unmarshal(data, &v); err != nil {
		return zero, false, nil
	}
	return v, true, nil
}

// GetAllItemsInPartition decodes every live item of partition, ordered by key.
// Items that fail to decode are skipped.
func GetAllItemsInPartition[V any](ctx context.Context, c AppCache, partition string) ([]V, error) {
	entries, err := c.GetAllRawInPartitionContext(ctx, partition)
	if err != nil {
		return nil, err
	}
	out := make([]V, 0, len(entries))
	for _, e := range entries {
		var v V
		if err := c.Unmarshal(e.Value, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Find resolves the members of (indexName, indexValue) into V values.
// Members whose entry fails to decode are removed from the index.
func Find[V any](ctx context.Context, c AppCache, indexName, indexValue, partition string) ([]V, error) {
	entries, err := c.FindRawContext(ctx, indexName, indexValue, partition)
	if err != nil {
		return nil, err
	}
	out := make([]V, 0, len(entries))
	for _, e := range entries {
		var v V
		if err := c.Unmarshal(e.Value, &v); err != nil {
			if rmErr := c.RemoveFromCustomIndexContext(ctx, indexName, indexValue, e.Key, partition); rmErr != nil {
				return nil, rmErr
			}
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
