package inventorytest

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
)

// SequenceQuerier fakes the sys_sequences table for numerator.Service.
// Every QueryRow advances the counter by the requested increment and
// returns the new value, matching the UPSERT ... RETURNING contract.
type SequenceQuerier struct {
	mu  sync.Mutex
	val int64
}

type sequenceRow struct{ val int64 }

func (r sequenceRow) Scan(dest ...any) error {
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = r.val
		}
	}
	return nil
}

func (q *SequenceQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.mu.Lock()
	defer q.mu.Unlock()

	var increment int64 = 1
	if len(args) == 2 {
		if v, ok := args[1].(int64); ok {
			increment = v
		}
	}
	q.val += increment
	return sequenceRow{val: q.val}
}
