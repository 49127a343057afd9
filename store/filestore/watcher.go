package filestore

import (
	"context"
	"path/filepath"
	"reflect"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/typegraph/store"
	"github.com/wippyai/typegraph/types"
)

// Syncer applies records that changed in the backend to an in-memory
// graph. *types.Manager implements it.
type Syncer interface {
	LoadAndInitializeType(raw store.RawType) (*types.Type, error)
	LoadAndInitializeMember(raw store.RawMember) (*types.Member, error)
	LoadAndUpdateType(raw store.RawType) error
	LoadAndUpdateMember(raw store.RawMember) error
	RemoveTypeInstance(id int) error
	RemoveMemberInstance(id int) error
}

var _ Syncer = (*types.Manager)(nil)

// Diff lists the records that differ between two snapshots.
type Diff struct {
	AddedTypes     []store.RawType
	UpdatedTypes   []store.RawType
	RemovedTypes   []int
	AddedMembers   []store.RawMember
	UpdatedMembers []store.RawMember
	RemovedMembers []int

	// SubstitutionsChanged is set when any substitution record differs.
	// Substitutions are not synced; they are picked up by Initialize.
	SubstitutionsChanged bool
}

// Len returns the number of type and member changes.
func (d Diff) Len() int {
	return len(d.AddedTypes) + len(d.UpdatedTypes) + len(d.RemovedTypes) +
		len(d.AddedMembers) + len(d.UpdatedMembers) + len(d.RemovedMembers)
}

// Compare returns the changes that turn from into to. Both snapshots must
// list records in id order.
func Compare(from, to *Snapshot) Diff {
	var d Diff

	oldTypes := make(map[int]store.RawType, len(from.Types))
	for _, t := range from.Types {
		oldTypes[t.ID] = t
	}
	for _, t := range to.Types {
		old, ok := oldTypes[t.ID]
		switch {
		case !ok:
			d.AddedTypes = append(d.AddedTypes, t)
		case !reflect.DeepEqual(old, t):
			d.UpdatedTypes = append(d.UpdatedTypes, t)
		}
		delete(oldTypes, t.ID)
	}
	for _, t := range from.Types {
		if _, gone := oldTypes[t.ID]; gone {
			d.RemovedTypes = append(d.RemovedTypes, t.ID)
		}
	}

	oldMembers := make(map[int]store.RawMember, len(from.Members))
	for _, m := range from.Members {
		oldMembers[m.ID] = m
	}
	for _, m := range to.Members {
		old, ok := oldMembers[m.ID]
		switch {
		case !ok:
			d.AddedMembers = append(d.AddedMembers, m)
		case !reflect.DeepEqual(old, m):
			d.UpdatedMembers = append(d.UpdatedMembers, m)
		}
		delete(oldMembers, m.ID)
	}
	for _, m := range from.Members {
		if _, gone := oldMembers[m.ID]; gone {
			d.RemovedMembers = append(d.RemovedMembers, m.ID)
		}
	}

	d.SubstitutionsChanged = !sameSubstitutions(from.Substitutions, to.Substitutions)
	return d
}

func sameSubstitutions(a, b []store.RawSubstitution) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Apply feeds d to target. Types are added before the members that use
// them and removed after. Every change is attempted; errors are combined.
func (d Diff) Apply(target Syncer) error {
	var err error
	for _, t := range d.AddedTypes {
		_, e := target.LoadAndInitializeType(t)
		err = multierr.Append(err, e)
	}
	for _, t := range d.UpdatedTypes {
		err = multierr.Append(err, target.LoadAndUpdateType(t))
	}
	for _, id := range d.RemovedMembers {
		err = multierr.Append(err, target.RemoveMemberInstance(id))
	}
	for _, m := range d.AddedMembers {
		_, e := target.LoadAndInitializeMember(m)
		err = multierr.Append(err, e)
	}
	for _, m := range d.UpdatedMembers {
		err = multierr.Append(err, target.LoadAndUpdateMember(m))
	}
	for _, id := range d.RemovedTypes {
		err = multierr.Append(err, target.RemoveTypeInstance(id))
	}
	return err
}

// Reload reads the snapshot file, replaces the in-memory records with it
// and applies the difference to target. Reloading a file this backend
// wrote itself yields an empty Diff.
func (b *Backend) Reload(ctx context.Context, target Syncer) (Diff, error) {
	next, err := ReadSnapshot(b.path)
	if err != nil {
		return Diff{}, err
	}

	b.mu.Lock()
	cur, err := b.snapshot(ctx)
	if err != nil {
		b.mu.Unlock()
		return Diff{}, err
	}
	diff := Compare(cur, next)
	if diff.Len() > 0 || diff.SubstitutionsChanged {
		b.mem.Import(next.Types, next.Members, next.Substitutions)
	}
	b.mu.Unlock()

	if diff.SubstitutionsChanged {
		b.log.Info("substitution records changed on disk; reinitialize to pick them up")
	}
	if diff.Len() == 0 {
		return diff, nil
	}
	return diff, diff.Apply(target)
}

// Watcher reloads the snapshot when the file changes on disk.
type Watcher struct {
	backend *Backend
	fs      *fsnotify.Watcher
	log     *zap.Logger
}

func newWatcher(b *Backend) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Writes replace the file by rename, which drops a watch on the file
	// itself, so the directory is watched instead.
	if err := fs.Add(filepath.Dir(b.path)); err != nil {
		fs.Close()
		return nil, err
	}
	return &Watcher{backend: b, fs: fs, log: b.log}, nil
}

// Run reloads into target on every change of the snapshot file until ctx
// is done or the watcher is closed. onReload, if set, is called after each
// reload that found changes.
func (w *Watcher) Run(ctx context.Context, target Syncer, onReload func(Diff, error)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.backend.path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			diff, err := w.backend.Reload(ctx, target)
			if err != nil {
				w.log.Warn("snapshot reload failed", zap.String("path", ev.Name), zap.Error(err))
			} else if diff.Len() > 0 {
				w.log.Info("snapshot reloaded",
					zap.Int("types_added", len(diff.AddedTypes)),
					zap.Int("types_updated", len(diff.UpdatedTypes)),
					zap.Int("types_removed", len(diff.RemovedTypes)),
					zap.Int("members_added", len(diff.AddedMembers)),
					zap.Int("members_updated", len(diff.UpdatedMembers)),
					zap.Int("members_removed", len(diff.RemovedMembers)))
			}
			if onReload != nil && (err != nil || diff.Len() > 0) {
				onReload(diff, err)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

// Close stops watching. Run returns once the event channels drain.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
