// Package filestore provides a store.Backend persisted as a JSON snapshot.
//
// Records live in memory and the whole snapshot is rewritten after every
// successful write. A Watcher picks up edits made to the file by other
// processes and applies them to a types.Manager without writing back.
package filestore

import (
	"context"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/typegraph/store"
	"github.com/wippyai/typegraph/store/memstore"
)

// DefaultPath is used when Options.Path is empty.
const DefaultPath = "typegraph.json"

// Options configures a file backend.
type Options struct {
	// Logger overrides the package logger.
	Logger *zap.Logger

	// Path of the snapshot file.
	Path string

	// Watch starts a file watcher on Open, available through Watcher.
	Watch bool
}

// DefaultOptions returns default file backend configuration.
func DefaultOptions() Options {
	return Options{Path: DefaultPath}
}

// Backend is a store.Backend backed by a snapshot file.
type Backend struct {
	mem     *memstore.Backend
	watcher *Watcher
	log     *zap.Logger
	path    string
	mu      sync.Mutex
}

var _ store.Backend = (*Backend)(nil)

// Open loads the snapshot at opts.Path. A missing file starts an empty
// store; the file is created on the first write.
func Open(opts Options) (*Backend, error) {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	path, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = Logger()
	}

	snap, err := ReadSnapshot(path)
	if err != nil {
		return nil, err
	}
	b := &Backend{
		mem:  memstore.New(),
		log:  log,
		path: path,
	}
	b.mem.Import(snap.Types, snap.Members, snap.Substitutions)
	log.Info("snapshot opened",
		zap.String("path", path),
		zap.String("schema", snap.Schema),
		zap.Int("types", len(snap.Types)),
		zap.Int("members", len(snap.Members)))

	if opts.Watch {
		w, err := newWatcher(b)
		if err != nil {
			return nil, err
		}
		b.watcher = w
	}
	return b, nil
}

// Path returns the absolute snapshot path.
func (b *Backend) Path() string {
	return b.path
}

// Watcher returns the watcher started by Options.Watch, or nil.
func (b *Backend) Watcher() *Watcher {
	return b.watcher
}

// Snapshot returns the current records.
func (b *Backend) Snapshot(ctx context.Context) (*Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot(ctx)
}

func (b *Backend) snapshot(ctx context.Context) (*Snapshot, error) {
	s := &Snapshot{Schema: SchemaVersion}
	var err error
	if s.Types, err = b.mem.LoadTypes(ctx); err != nil {
		return nil, err
	}
	if s.Members, err = b.mem.LoadMembers(ctx); err != nil {
		return nil, err
	}
	if s.Substitutions, err = b.mem.LoadSubstitutions(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// write runs op against the in-memory records and rewrites the file. A
// failed file write keeps the in-memory change; the next successful write
// carries it to disk.
func (b *Backend) write(ctx context.Context, name string, op func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := op(); err != nil {
		return err
	}
	s, err := b.snapshot(ctx)
	if err != nil {
		return err
	}
	if err := WriteSnapshot(b.path, s); err != nil {
		b.log.Warn("snapshot write failed", zap.String("op", name), zap.Error(err))
		return err
	}
	b.log.Debug("snapshot written", zap.String("op", name))
	return nil
}

// CreateType stores a type and returns its id.
func (b *Backend) CreateType(ctx context.Context, t store.RawType) (int, error) {
	var id int
	err := b.write(ctx, "CreateType", func() (err error) {
		id, err = b.mem.CreateType(ctx, t)
		return err
	})
	return id, err
}

// UpdateType overwrites a stored type.
func (b *Backend) UpdateType(ctx context.Context, t store.RawType) error {
	return b.write(ctx, "UpdateType", func() error {
		return b.mem.UpdateType(ctx, t)
	})
}

// DeleteType removes a type and its members.
func (b *Backend) DeleteType(ctx context.Context, id int) error {
	return b.write(ctx, "DeleteType", func() error {
		return b.mem.DeleteType(ctx, id)
	})
}

// CreateMember stores a member and returns its id.
func (b *Backend) CreateMember(ctx context.Context, m store.RawMember) (int, error) {
	var id int
	err := b.write(ctx, "CreateMember", func() (err error) {
		id, err = b.mem.CreateMember(ctx, m)
		return err
	})
	return id, err
}

// UpdateMember overwrites a stored member.
func (b *Backend) UpdateMember(ctx context.Context, m store.RawMember) error {
	return b.write(ctx, "UpdateMember", func() error {
		return b.mem.UpdateMember(ctx, m)
	})
}

// DeleteMember removes a member.
func (b *Backend) DeleteMember(ctx context.Context, id int) error {
	return b.write(ctx, "DeleteMember", func() error {
		return b.mem.DeleteMember(ctx, id)
	})
}

// UpdateMemberOffsets shifts two groups of member offsets.
func (b *Backend) UpdateMemberOffsets(ctx context.Context, ids []int, delta int, implicitIDs []int, implicitDelta int) error {
	return b.write(ctx, "UpdateMemberOffsets", func() error {
		return b.mem.UpdateMemberOffsets(ctx, ids, delta, implicitIDs, implicitDelta)
	})
}

// CreateSubstitution stores a substitution and returns its id.
func (b *Backend) CreateSubstitution(ctx context.Context, s store.RawSubstitution) (int, error) {
	var id int
	err := b.write(ctx, "CreateSubstitution", func() (err error) {
		id, err = b.mem.CreateSubstitution(ctx, s)
		return err
	})
	return id, err
}

// UpdateSubstitution overwrites a stored substitution.
func (b *Backend) UpdateSubstitution(ctx context.Context, s store.RawSubstitution) error {
	return b.write(ctx, "UpdateSubstitution", func() error {
		return b.mem.UpdateSubstitution(ctx, s)
	})
}

// DeleteSubstitution removes a substitution.
func (b *Backend) DeleteSubstitution(ctx context.Context, id int) error {
	return b.write(ctx, "DeleteSubstitution", func() error {
		return b.mem.DeleteSubstitution(ctx, id)
	})
}

// LoadTypes returns all live types ordered by id.
func (b *Backend) LoadTypes(ctx context.Context) ([]store.RawType, error) {
	return b.mem.LoadTypes(ctx)
}

// LoadMembers returns all live members ordered by id.
func (b *Backend) LoadMembers(ctx context.Context) ([]store.RawMember, error) {
	return b.mem.LoadMembers(ctx)
}

// LoadSubstitutions returns all live substitutions ordered by id.
func (b *Backend) LoadSubstitutions(ctx context.Context) ([]store.RawSubstitution, error) {
	return b.mem.LoadSubstitutions(ctx)
}

// Close stops the watcher and releases the records. The file is left as
// of the last write.
func (b *Backend) Close() error {
	var err error
	if b.watcher != nil {
		err = multierr.Append(err, b.watcher.Close())
	}
	return multierr.Append(err, b.mem.Close())
}
