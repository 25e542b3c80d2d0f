package sqlitelog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trainlog/trainlog"
)

// ancestorChain returns the ancestry as SQL arguments, self first. The
// resolved chain is cached: for a fixed identity it is immutable, since
// ancestors are never mutated, so the cache only resets on Resume.
func (l *Log) ancestorChain(ctx context.Context) ([]interface{}, error) {
	l.mu.RLock()
	cached := l.ancestors
	self := l.identity
	l.mu.RUnlock()

	if cached == nil {
		resolved, err := l.resolveAncestors(ctx, self)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		// Keep the resolution only if no Resume happened meanwhile.
		if l.identity.Equals(self) {
			l.ancestors = resolved
		}
		l.mu.Unlock()
		cached = resolved
	}

	args := make([]interface{}, len(cached))
	for i, identity := range cached {
		args[i] = identity
	}
	return args, nil
}

// resolveAncestors walks resumed_from links starting from self. A null or
// missing link ends the chain; a revisited identity or an undecodable link
// is a corrupt chain, surfaced instead of looping.
func (l *Log) resolveAncestors(ctx context.Context, self trainlog.Identity) ([][]byte, error) {
	chain := [][]byte{self.Bytes()}
	visited := map[string]bool{string(self.Bytes()): true}

	for {
		tail := chain[len(chain)-1]

		var parent []byte
		err := l.exec(ctx).QueryRowContext(ctx,
			`SELECT value FROM status WHERE identity = ? AND "key" = ?`,
			tail, trainlog.StatusResumedFrom,
		).Scan(&parent)
		if err == sql.ErrNoRows {
			break
		}
		if err != nil {
			return nil, &trainlog.StorageError{Op: "resolve ancestry", Err: err}
		}
		if parent == nil {
			break
		}

		if _, err := trainlog.IdentityFromBytes(parent); err != nil {
			return nil, fmt.Errorf("resumed_from of %x: %v: %w", tail, err, trainlog.ErrCorruptAncestry)
		}
		if visited[string(parent)] {
			return nil, fmt.Errorf("resumed_from cycle at %x: %w", parent, trainlog.ErrCorruptAncestry)
		}
		visited[string(parent)] = true
		chain = append(chain, parent)
	}
	return chain, nil
}
