package types

import (
	"reflect"
	"slices"
	"sync"
)

// TypeChangedListener receives type and member changes. Calls arrive on the
// mutating goroutine after the change is committed to the backend and the
// graph, in registration order.
type TypeChangedListener interface {
	MemberAdded(m *Member)
	MemberDeleted(m *Member)
	MemberUpdated(m *Member)
	MembersMoved(affected []*Type)
	TypeAdded(t *Type)
	TypeDeleted(t *Type)
	TypesUpdated(affected []*Type)
}

// SubstitutionChangedListener receives type substitution changes.
type SubstitutionChangedListener interface {
	SubstitutionsAdded(s []*Substitution)
	SubstitutionsChanged(s []*Substitution)
	SubstitutionsDeleted(s []*Substitution)
}

// NopTypeListener implements TypeChangedListener with empty methods.
// Embed it to handle a subset of events.
type NopTypeListener struct{}

func (NopTypeListener) MemberAdded(*Member) {}
func (NopTypeListener) MemberDeleted(*Member) {}
func (NopTypeListener) MemberUpdated(*Member) {}
func (NopTypeListener) MembersMoved([]*Type) {}
func (NopTypeListener) TypeAdded(*Type) {}
func (NopTypeListener) TypeDeleted(*Type) {}
func (NopTypeListener) TypesUpdated([]*Type) {}

type event struct {
	onType  func(TypeChangedListener)
	onSubst func(SubstitutionChangedListener)
}

type registry struct {
	types  []typeEntry
	substs []substEntry
	nextID uint64
	mu     sync.RWMutex
}

type typeEntry struct {
	l  TypeChangedListener
	id uint64
}

type substEntry struct {
	l  SubstitutionChangedListener
	id uint64
}

func (r *registry) addType(l TypeChangedListener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.types = append(r.types, typeEntry{l: l, id: id})
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.types = slices.DeleteFunc(r.types, func(e typeEntry) bool { return e.id == id })
	}
}

func (r *registry) removeType(l TypeChangedListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := slices.IndexFunc(r.types, func(e typeEntry) bool { return sameListener(e.l, l) }); i >= 0 {
		r.types = slices.Delete(r.types, i, i+1)
	}
}

func (r *registry) addSubst(l SubstitutionChangedListener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.substs = append(r.substs, substEntry{l: l, id: id})
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.substs = slices.DeleteFunc(r.substs, func(e substEntry) bool { return e.id == id })
	}
}

func (r *registry) removeSubst(l SubstitutionChangedListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := slices.IndexFunc(r.substs, func(e substEntry) bool { return sameListener(e.l, l) }); i >= 0 {
		r.substs = slices.Delete(r.substs, i, i+1)
	}
}

// sameListener compares two listeners with == when both hold comparable
// values. Listeners that are not comparable never match; remove them with
// the function returned at registration.
func sameListener(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return false
	}
	if va.Type() != vb.Type() || !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}

// dispatch delivers events in order, each to every listener in
// registration order.
func (r *registry) dispatch(events []event) {
	if len(events) == 0 {
		return
	}
	r.mu.RLock()
	types := make([]TypeChangedListener, len(r.types))
	for i, e := range r.types {
		types[i] = e.l
	}
	substs := make([]SubstitutionChangedListener, len(r.substs))
	for i, e := range r.substs {
		substs[i] = e.l
	}
	r.mu.RUnlock()

	for _, e := range events {
		if e.onType != nil {
			for _, l := range types {
				e.onType(l)
			}
		}
		if e.onSubst != nil {
			for _, l := range substs {
				e.onSubst(l)
			}
		}
	}
}
