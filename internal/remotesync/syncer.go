package remotesync

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/neuronotes/internal/kvstore"
	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// LastSyncKey is the KV key holding the stamp of the last completed sync.
// It lives outside the settings store so it never syncs itself.
const LastSyncKey = "sync:last"

// Row operations named in RowError.
const (
	OpPush         = "push"
	OpPull         = "pull"
	OpDeleteRemote = "delete-remote"
	OpDeleteLocal  = "delete-local"
)

// Options configures a Syncer.
type Options struct {
	Local  Local
	Remote Remote
	KV     kvstore.Store
	Now    func() time.Time
	Logger zerolog.Logger
}

// Report summarizes one sync.
type Report struct {
	Pushed        int
	Pulled        int
	DeletedRemote int
	DeletedLocal  int
	Ties          int
	Errors        []RowError
	LastSync      int64
}

// Syncer runs last-writer-wins reconciliation between Local and Remote.
type Syncer struct {
	opts Options
	log  zerolog.Logger
}

// NewSyncer returns a Syncer.
func NewSyncer(opts Options) *Syncer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Syncer{opts: opts, log: opts.Logger.With().Str("component", "sync").Logger()}
}

// LastSync returns the stamp recorded by the last completed sync, or zero.
func (s *Syncer) LastSync(ctx context.Context) (int64, error) {
	raw, err := s.opts.KV.Get(ctx, LastSyncKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		s.log.Warn().Str("value", string(raw)).Msg("ignoring unreadable last sync stamp")
		return 0, nil
	}
	return v, nil
}

// Sync reconciles every store. Per row:
//
//   - present on both sides: the greater stamp wins; equal stamps with
//     different content are broken by the greater content hash
//   - local only: pushed if changed since the last sync, otherwise it was
//     deleted remotely and is deleted locally
//   - remote only: pulled
//   - tombstoned locally: deleted remotely unless the remote row is newer
//     than the delete, in which case it is pulled back
//
// Row failures are collected in the report and do not stop the sync.
// Failing to read either side does.
func (s *Syncer) Sync(ctx context.Context) (*Report, error) {
	start := s.opts.Now().UnixMilli()
	last, err := s.LastSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("read last sync: %w", err)
	}
	tombs, err := s.opts.Local.Tombstones(ctx)
	if err != nil {
		return nil, fmt.Errorf("read tombstones: %w", err)
	}
	byStore := map[string]map[string]types.Tombstone{}
	for _, t := range tombs {
		if byStore[t.Store] == nil {
			byStore[t.Store] = map[string]types.Tombstone{}
		}
		byStore[t.Store][t.ID] = t
	}

	rep := &Report{}
	// Rows written once the sync has begun stamp at or after start, so the
	// recorded stamp stays below them and the next sync pushes them.
	high := start - 1
	var acked []types.Tombstone
	for _, store := range types.StoreNames {
		a, err := s.syncStore(ctx, store, last, byStore[store], rep, &high)
		if err != nil {
			return rep, fmt.Errorf("sync %s: %w", store, err)
		}
		acked = append(acked, a...)
	}

	if err := s.opts.Local.ClearTombstones(ctx, acked); err != nil {
		return rep, err
	}
	if len(rep.Errors) == 0 {
		if err := s.opts.KV.Set(ctx, LastSyncKey, []byte(strconv.FormatInt(high, 10))); err != nil {
			return rep, fmt.Errorf("record last sync: %w", err)
		}
		rep.LastSync = high
	}
	s.log.Info().
		Int("pushed", rep.Pushed).Int("pulled", rep.Pulled).
		Int("deleted_remote", rep.DeletedRemote).Int("deleted_local", rep.DeletedLocal).
		Int("errors", len(rep.Errors)).Msg("sync finished")
	return rep, nil
}

// syncStore reconciles one store and returns the tombstones the remote
// has acknowledged.
func (s *Syncer) syncStore(ctx context.Context, store string, last int64, tombs map[string]types.Tombstone, rep *Report, high *int64) ([]types.Tombstone, error) {
	local, err := s.opts.Local.Rows(ctx, store)
	if err != nil {
		return nil, err
	}
	remote, err := s.opts.Remote.Fetch(ctx, store)
	if err != nil {
		return nil, err
	}
	remoteByKey := make(map[string]types.Entity, len(remote))
	for _, e := range remote {
		remoteByKey[e.PrimaryKey()] = e
	}

	var push []types.Entity
	var pull []types.Entity
	var dropLocal []string
	for _, l := range local {
		key := l.PrimaryKey()
		r, ok := remoteByKey[key]
		delete(remoteByKey, key)
		switch {
		case !ok && l.Stamp() > last:
			push = append(push, l)
		case !ok:
			dropLocal = append(dropLocal, key)
		default:
			switch winner(l, r) {
			case 1:
				push = append(push, l)
			case -1:
				pull = append(pull, r)
			}
			if l.Stamp() == r.Stamp() {
				rep.Ties++
			}
		}
	}

	var dropRemote []string
	var acked []types.Tombstone
	for key, t := range tombs {
		r, ok := remoteByKey[key]
		if ok {
			delete(remoteByKey, key)
			if r.Stamp() > t.DeletedAt {
				pull = append(pull, r)
				continue
			}
			dropRemote = append(dropRemote, key)
		}
		acked = append(acked, t)
	}
	for _, r := range remote {
		if _, ok := remoteByKey[r.PrimaryKey()]; ok {
			pull = append(pull, r)
		}
	}

	if len(push) > 0 {
		err := s.opts.Remote.Upsert(ctx, store, push)
		failed, err := s.partial(err, rep)
		if err != nil {
			return nil, err
		}
		rep.Pushed += len(push) - failed
		for _, l := range push {
			if l.Stamp() > *high {
				*high = l.Stamp()
			}
		}
	}
	if len(dropRemote) > 0 {
		err := s.opts.Remote.Delete(ctx, store, dropRemote)
		failed, err := s.partial(err, rep)
		if err != nil {
			return nil, err
		}
		if failed > 0 {
			acked = withoutFailed(acked, rep.Errors)
		}
		rep.DeletedRemote += len(dropRemote) - failed
	}
	for _, r := range pull {
		if err := s.opts.Local.ApplyUpsert(ctx, r); err != nil {
			s.rowFailed(rep, store, r.PrimaryKey(), OpPull, err)
			continue
		}
		if r.Stamp() > *high {
			*high = r.Stamp()
		}
		rep.Pulled++
	}
	for _, key := range dropLocal {
		if err := s.opts.Local.ApplyDelete(ctx, store, key); err != nil {
			s.rowFailed(rep, store, key, OpDeleteLocal, err)
			continue
		}
		rep.DeletedLocal++
	}
	return acked, nil
}

// partial folds a *PartialError into the report and returns how many rows
// it covered. Any other error is returned.
func (s *Syncer) partial(err error, rep *Report) (int, error) {
	if err == nil {
		return 0, nil
	}
	var pe *PartialError
	if !errors.As(err, &pe) {
		return 0, err
	}
	for _, re := range pe.Rows {
		s.rowFailed(rep, re.Store, re.ID, re.Op, re.Err)
	}
	return len(pe.Rows), nil
}

func (s *Syncer) rowFailed(rep *Report, store, id, op string, err error) {
	s.log.Warn().Err(err).Str("store", store).Str("id", id).Str("op", op).Msg("row sync failed")
	rep.Errors = append(rep.Errors, RowError{Store: store, ID: id, Op: op, Err: err})
}

func withoutFailed(ts []types.Tombstone, failed []RowError) []types.Tombstone {
	bad := map[string]bool{}
	for _, f := range failed {
		bad[f.Store+"/"+f.ID] = true
	}
	out := ts[:0]
	for _, t := range ts {
		if !bad[t.Store+"/"+t.ID] {
			out = append(out, t)
		}
	}
	return out
}

// winner returns 1 when l should overwrite r, -1 for the reverse, and 0
// when both already agree.
func winner(l, r types.Entity) int {
	switch {
	case l.Stamp() > r.Stamp():
		return 1
	case l.Stamp() < r.Stamp():
		return -1
	}
	return bytes.Compare(contentHash(l), contentHash(r))
}

// contentHash hashes the JSON form of e without transient read state.
func contentHash(e types.Entity) []byte {
	if n, ok := e.(*types.Note); ok {
		cp := *n
		cp.ContentState = types.ContentUnknown
		e = &cp
	}
	raw, _ := json.Marshal(e)
	sum := sha256.Sum256(raw)
	return sum[:]
}
