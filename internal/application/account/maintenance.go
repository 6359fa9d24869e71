package account

import (
	"context"
	"sort"
	"time"

	"github.com/baechuer/account-service/internal/domain"
)

type Entry struct {
	Key    string
	Record domain.Record
}

// ListRecords returns every readable record sorted by key. Corrupt files are
// skipped; the caller only gets the keys it can act on.
func ListRecords(ctx context.Context, idx RecordIndex) ([]Entry, error) {
	keys, err := idx.Keys(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	sort.Strings(keys)

	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		rec, err := idx.Get(ctx, k)
		if err != nil {
			if isNotFound(err) || domain.Is(err, "record_corrupt") {
				continue
			}
			return nil, storeErr(err)
		}
		out = append(out, Entry{Key: k, Record: rec})
	}
	return out, nil
}

// PurgeDemo deletes every demo record and returns how many were removed.
func PurgeDemo(ctx context.Context, idx RecordIndex) (int, error) {
	return purge(ctx, idx, func(r domain.Record) bool {
		return r.State() == domain.StateDemo
	})
}

// PurgePending deletes pending records created before now-olderThan.
func PurgePending(ctx context.Context, idx RecordIndex, olderThan time.Duration, now time.Time) (int, error) {
	cutoff := now.Add(-olderThan)
	return purge(ctx, idx, func(r domain.Record) bool {
		return r.State() == domain.StatePending && r.CreatedTime.Before(cutoff)
	})
}

func purge(ctx context.Context, idx RecordIndex, match func(domain.Record) bool) (int, error) {
	entries, err := ListRecords(ctx, idx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, e := range entries {
		if !match(e.Record) {
			continue
		}
		if err := idx.Delete(ctx, e.Key); err != nil {
			if isNotFound(err) {
				continue
			}
			return n, storeErr(err)
		}
		n++
	}
	return n, nil
}
