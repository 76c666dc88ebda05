package record

import (
	"context"
	"runtime"
	"strings"
)

// yieldBatch is the number of nonce attempts between cooperative yields.
const yieldBatch = 1000

// PerformPOW mines the block cooperatively: every yieldBatch attempts the
// loop yields the processor and honors context cancellation, so a long
// search doesn't starve other goroutines and can be aborted. Pointer
// semantics are being used since a nonce is being discovered.
func (b *Block) PerformPOW(ctx context.Context, ev func(v string, args ...any)) error {
	ev("record: PerformPOW: MINING: started: blk[%d] difficulty[%d]", b.Number, b.Difficulty)
	defer ev("record: PerformPOW: MINING: completed: blk[%d]", b.Number)

	var attempts uint64
	for {
		attempts++
		if attempts%yieldBatch == 0 {
			if ctx.Err() != nil {
				ev("record: PerformPOW: MINING: CANCELLED: blk[%d]", b.Number)
				return ctx.Err()
			}
			runtime.Gosched()
		}

		hash := b.Hash()
		if IsHashSolved(b.Difficulty, hash) {
			ev("record: PerformPOW: MINING: SOLVED: blk[%d] attempts[%d] hash[%s]", b.Number, attempts, hash)
			return nil
		}

		b.Nonce++
	}
}

// PerformPOWWait mines the block to completion on the calling goroutine
// without yielding. There is no way to abort it.
func (b *Block) PerformPOWWait(ev func(v string, args ...any)) error {
	return b.PerformPOW(context.Background(), ev)
}

// IsHashSolved checks the hash complies with the POW rules: the first
// difficulty hex digits must be zero.
func IsHashSolved(difficulty uint, hash string) bool {
	if len(hash) != 64 || difficulty > 64 {
		return false
	}

	return strings.HasPrefix(hash, strings.Repeat("0", int(difficulty)))
}
