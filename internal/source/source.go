// Package source produces the records a run works through and decides where
// a run starts.
package source

import (
	"context"

	"github.com/cockroachdb/errors"

	"pstitle/internal/models"
	"pstitle/internal/storage"
)

// Records returns the records 0..count-1 in index order.
func Records(count int) []models.Record {
	if count <= 0 {
		return nil
	}
	out := make([]models.Record, count)
	for i := range out {
		out[i] = models.Record{Index: i}
	}
	return out
}

// ResumeOffset returns the index of the first record to process.
//
// Without a resumer the offset is skip. With one, the run continues at the
// first record the sink does not hold: the offset is the larger of skip and
// that index. Records after a gap are processed again, which sinks ignore.
// The result is always within [0, count].
func ResumeOffset(ctx context.Context, skip, count int, resumer storage.Resumer) (int, error) {
	if skip < 0 || skip > count {
		return 0, errors.Newf("skip %d outside 0..%d", skip, count)
	}
	if resumer == nil {
		return skip, nil
	}

	missing, err := resumer.FirstMissing(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "find records already written")
	}
	return min(max(skip, missing), count), nil
}
