package types

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/typegraph/errors"
	"github.com/wippyai/typegraph/internal/depgraph"
	"github.com/wippyai/typegraph/store"
)

// DefaultPointerSize is the bit size given to pointer types.
const DefaultPointerSize = 32

// DependenceGraph answers containment questions about the type graph.
// Ids are type ids. The Manager mirrors every structural change into it.
type DependenceGraph interface {
	AddType(id int)
	DeleteType(id int) []int
	UpdateType(id int) []int
	AddMember(parent, memberType int)
	DeleteMember(parent, memberType int)
	UpdateMember(parent, oldType, newType int)
	DependentTypes(id int) []int
	WillCreateCycle(container, memberType int) bool
	IsTypeContainedIn(superType, t int) bool
}

// Options configures a Manager.
type Options struct {
	// Logger overrides the package logger.
	Logger *zap.Logger

	// DependenceGraph replaces the built-in containment graph.
	DependenceGraph DependenceGraph

	// PointerSize is the bit size of new pointer types.
	PointerSize int
}

// DefaultOptions returns default manager configuration.
func DefaultOptions() Options {
	return Options{
		PointerSize: DefaultPointerSize,
	}
}

// Manager is the only writer of the type graph. Every mutation validates,
// persists through the backend, updates the graph and then notifies
// listeners. Thread-safe.
//
// Listeners run after the manager lock is released, so they may call back
// into the manager. Events from concurrent callers may interleave.
type Manager struct {
	backend       store.Backend
	deps          DependenceGraph
	log           *zap.Logger
	types         map[int]*Type
	members       map[int]*Member
	substitutions map[int]*Substitution
	listeners     registry
	options       Options
	mu            sync.Mutex
}

// New creates a Manager over backend. Call Initialize to load existing data.
func New(backend store.Backend, opts Options) *Manager {
	if opts.PointerSize <= 0 {
		opts.PointerSize = DefaultPointerSize
	}
	deps := opts.DependenceGraph
	if deps == nil {
		deps = depgraph.New()
	}
	log := opts.Logger
	if log == nil {
		log = Logger()
	}
	return &Manager{
		backend:       backend,
		deps:          deps,
		log:           log,
		types:         make(map[int]*Type),
		members:       make(map[int]*Member),
		substitutions: make(map[int]*Substitution),
		options:       opts,
	}
}

// NewWithDefaults creates a Manager with default options.
func NewWithDefaults(backend store.Backend) *Manager {
	return New(backend, DefaultOptions())
}

// Options returns the configuration.
func (m *Manager) Options() Options {
	return m.options
}

// Backend returns the persistence backend.
func (m *Manager) Backend() store.Backend {
	return m.backend
}

// Close closes the backend.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend.Close()
}

// AddTypeChangedListener registers l. Listeners are called in
// registration order. The returned function removes this registration and
// works for any listener value.
func (m *Manager) AddTypeChangedListener(l TypeChangedListener) (remove func()) {
	return m.listeners.addType(l)
}

// RemoveTypeChangedListener unregisters the first registration equal to l.
// Only comparable listener values, such as pointers, can be matched; use the
// function returned by AddTypeChangedListener for the others.
func (m *Manager) RemoveTypeChangedListener(l TypeChangedListener) {
	m.listeners.removeType(l)
}

// AddSubstitutionChangedListener registers l and returns a function that
// removes the registration.
func (m *Manager) AddSubstitutionChangedListener(l SubstitutionChangedListener) (remove func()) {
	return m.listeners.addSubst(l)
}

// RemoveSubstitutionChangedListener unregisters the first registration equal
// to l. Matching follows RemoveTypeChangedListener.
func (m *Manager) RemoveSubstitutionChangedListener(l SubstitutionChangedListener) {
	m.listeners.removeSubst(l)
}

// Initialize replaces the in-memory graph with the backend contents.
// No listeners are notified.
func (m *Manager) Initialize(ctx context.Context) error {
	rawTypes, err := m.backend.LoadTypes(ctx)
	if err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindBackend, err, "load types")
	}
	rawMembers, err := m.backend.LoadMembers(ctx)
	if err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindBackend, err, "load members")
	}
	rawSubsts, err := m.backend.LoadSubstitutions(ctx)
	if err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindBackend, err, "load substitutions")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.types = make(map[int]*Type, len(rawTypes))
	m.members = make(map[int]*Member, len(rawMembers))
	m.substitutions = make(map[int]*Substitution, len(rawSubsts))
	if m.options.DependenceGraph == nil {
		m.deps = depgraph.New()
	}

	for _, raw := range rawTypes {
		t, err := typeFromRaw(raw)
		if err != nil {
			return err
		}
		if _, dup := m.types[t.id]; dup {
			return errors.New(errors.PhaseLoad, errors.KindDuplicate).TypeName(t.name).Value(t.id).Build()
		}
		m.types[t.id] = t
		m.deps.AddType(t.id)
	}
	for _, raw := range rawTypes {
		if raw.PointsTo == nil {
			continue
		}
		if err := m.linkPointer(raw); err != nil {
			return err
		}
	}
	for _, raw := range rawMembers {
		mem, err := m.memberFromRaw(raw, errors.PhaseLoad)
		if err != nil {
			return err
		}
		if m.deps.WillCreateCycle(mem.parent.id, mem.baseType.id) {
			cyc := errors.Cyclic(mem.parent.name, mem.baseType.name)
			cyc.Phase = errors.PhaseLoad
			cyc.Path = []string{mem.parent.name, mem.name}
			return cyc
		}
		m.attachMember(mem)
	}
	for _, raw := range rawSubsts {
		s, err := m.substitutionFromRaw(raw)
		if err != nil {
			return err
		}
		m.substitutions[s.id] = s
	}

	m.log.Info("type graph loaded",
		zap.Int("types", len(m.types)),
		zap.Int("members", len(m.members)),
		zap.Int("substitutions", len(m.substitutions)))
	return nil
}

// View runs fn with the manager lock held. Use it to read several types
// consistently while other goroutines mutate the graph.
func (m *Manager) View(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}

// Type returns the type with the given id, or nil.
func (m *Manager) Type(id int) *Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.types[id]
}

// Member returns the member with the given id, or nil.
func (m *Manager) Member(id int) *Member {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[id]
}

// TypeByName returns the type with the lowest id carrying name, or nil.
func (m *Manager) TypeByName(name string) *Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.typeByName(name)
}

// IsTypeExisting reports whether any type carries name.
func (m *Manager) IsTypeExisting(name string) bool {
	return m.TypeByName(name) != nil
}

// Types returns every type sorted by id.
func (m *Manager) Types() []*Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedTypes()
}

// IsContainedIn reports whether superType holds t directly or through
// nested members.
func (m *Manager) IsContainedIn(superType, t *Type) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deps.IsTypeContainedIn(superType.id, t.id)
}

// WillCreateCycle reports whether adding a member of type base to
// container would make a type contain itself.
func (m *Manager) WillCreateCycle(container, base *Type) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deps.WillCreateCycle(container.id, base.id)
}

// DependentTypes returns t and every type whose layout depends on it.
func (m *Manager) DependentTypes(t *Type) []*Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveIDs(m.deps.DependentTypes(t.id))
}

func (m *Manager) typeByName(name string) *Type {
	var found *Type
	for _, t := range m.types {
		if t.name == name && (found == nil || t.id < found.id) {
			found = t
		}
	}
	return found
}

func (m *Manager) sortedTypes() []*Type {
	out := make([]*Type, 0, len(m.types))
	for _, t := range m.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (m *Manager) resolveIDs(ids []int) []*Type {
	out := make([]*Type, 0, len(ids))
	for _, id := range ids {
		if t, ok := m.types[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// knownType rejects nil types and types that do not belong to this manager.
func (m *Manager) knownType(t *Type, role string) error {
	if t == nil {
		return errors.InvalidInput("%s type is nil", role)
	}
	if m.types[t.id] != t {
		return errors.NotFound(errors.PhaseValidate, role+" type", t.id)
	}
	return nil
}

func (m *Manager) knownMember(mem *Member) error {
	if mem == nil {
		return errors.InvalidInput("member is nil")
	}
	if m.members[mem.id] != mem {
		return errors.NotFound(errors.PhaseValidate, "member", mem.id)
	}
	return nil
}

func (m *Manager) attachMember(mem *Member) {
	mem.parent.addMember(mem)
	m.members[mem.id] = mem
	m.deps.AddMember(mem.parent.id, mem.baseType.id)
}

func (m *Manager) detachMember(mem *Member) {
	mem.parent.removeMember(mem)
	delete(m.members, mem.id)
	m.deps.DeleteMember(mem.parent.id, mem.baseType.id)
}

func (m *Manager) linkPointer(raw store.RawType) error {
	pointer := m.types[raw.ID]
	value, ok := m.types[*raw.PointsTo]
	if !ok {
		return errors.NotFound(errors.PhaseLoad, "pointer target type", *raw.PointsTo)
	}
	return appendToPointerHierarchy(value, pointer)
}

// txn collects the events of one mutation. Events are dispatched after the
// manager lock is released, including those of steps that committed before
// a later step failed.
type txn struct {
	ctx    context.Context
	m      *Manager
	events []event
	writes int
}

func (m *Manager) apply(ctx context.Context, fn func(tx *txn) error) error {
	tx := &txn{ctx: ctx, m: m}
	err := func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		return fn(tx)
	}()
	m.listeners.dispatch(tx.events)
	return err
}

func (tx *txn) memberAdded(mem *Member) {
	tx.events = append(tx.events, event{onType: func(l TypeChangedListener) { l.MemberAdded(mem) }})
}

func (tx *txn) memberDeleted(mem *Member) {
	tx.events = append(tx.events, event{onType: func(l TypeChangedListener) { l.MemberDeleted(mem) }})
}

func (tx *txn) memberUpdated(mem *Member) {
	tx.events = append(tx.events, event{onType: func(l TypeChangedListener) { l.MemberUpdated(mem) }})
}

func (tx *txn) membersMoved(affected []*Type) {
	tx.events = append(tx.events, event{onType: func(l TypeChangedListener) { l.MembersMoved(affected) }})
}

func (tx *txn) typeAdded(t *Type) {
	tx.events = append(tx.events, event{onType: func(l TypeChangedListener) { l.TypeAdded(t) }})
}

func (tx *txn) typeDeleted(t *Type) {
	tx.events = append(tx.events, event{onType: func(l TypeChangedListener) { l.TypeDeleted(t) }})
}

func (tx *txn) typesUpdated(affected []*Type) {
	tx.events = append(tx.events, event{onType: func(l TypeChangedListener) { l.TypesUpdated(affected) }})
}

func (tx *txn) substitutionsAdded(s []*Substitution) {
	tx.events = append(tx.events, event{onSubst: func(l SubstitutionChangedListener) { l.SubstitutionsAdded(s) }})
}

func (tx *txn) substitutionsChanged(s []*Substitution) {
	if len(s) == 0 {
		return
	}
	tx.events = append(tx.events, event{onSubst: func(l SubstitutionChangedListener) { l.SubstitutionsChanged(s) }})
}

func (tx *txn) substitutionsDeleted(s []*Substitution) {
	tx.events = append(tx.events, event{onSubst: func(l SubstitutionChangedListener) { l.SubstitutionsDeleted(s) }})
}

// persist wraps a backend failure.
func (tx *txn) persist(op string, err error) error {
	return errors.Persist(op, err)
}

// diverged reports a backend failure inside a multi-step update. Steps
// committed before the failure are not undone, so once any write landed the
// graph no longer matches a single consistent state.
func (tx *txn) diverged(err error) error {
	if tx.writes > 0 {
		tx.m.log.Warn("backend write failed after earlier writes of the same call were committed",
			zap.Int("committed", tx.writes), zap.Error(err))
	}
	return err
}

// rollback undoes a backend create after a later step of the same call
// failed. Both failures are reported.
func (tx *txn) rollback(cause error, undo func() error) error {
	if err := undo(); err != nil {
		tx.m.log.Warn("rollback failed", zap.Error(err))
		return multierr.Append(cause, errors.Persist("rollback", err))
	}
	return cause
}
