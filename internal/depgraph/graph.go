// Package depgraph tracks which types contain which other types.
//
// An edge runs from a member's base type to the type that holds the member,
// so walking edges forward from a type visits every type whose layout
// depends on it. A type that holds two members of the same base type has two
// parallel edges; edges are counted so removing one member keeps the other.
package depgraph

import (
	"sort"
)

// Graph is the containment graph keyed by type id.
// It is not safe for concurrent use; the engine serializes access.
type Graph struct {
	// dependents maps a member type to the types holding it, with edge counts
	dependents map[int]map[int]int

	// contains maps a holding type to its member types, with edge counts
	contains map[int]map[int]int
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		dependents: make(map[int]map[int]int),
		contains:   make(map[int]map[int]int),
	}
}

// AddType registers a type with no edges. Adding an existing type is a no-op.
func (g *Graph) AddType(id int) {
	if _, ok := g.dependents[id]; ok {
		return
	}
	g.dependents[id] = make(map[int]int)
	g.contains[id] = make(map[int]int)
}

// HasType reports whether the type is registered.
func (g *Graph) HasType(id int) bool {
	_, ok := g.dependents[id]
	return ok
}

// DeleteType removes a type and every edge touching it. It returns the
// types that depended on it before removal, the type itself included.
func (g *Graph) DeleteType(id int) []int {
	affected := g.DependentTypes(id)
	for parent := range g.dependents[id] {
		delete(g.contains[parent], id)
	}
	for child := range g.contains[id] {
		delete(g.dependents[child], id)
	}
	delete(g.dependents, id)
	delete(g.contains, id)
	return affected
}

// UpdateType returns the types affected by a change to id.
func (g *Graph) UpdateType(id int) []int {
	return g.DependentTypes(id)
}

// AddMember records that parent holds a member of type memberType.
func (g *Graph) AddMember(parent, memberType int) {
	g.AddType(parent)
	g.AddType(memberType)
	g.dependents[memberType][parent]++
	g.contains[parent][memberType]++
}

// DeleteMember removes one parent/memberType edge.
func (g *Graph) DeleteMember(parent, memberType int) {
	if n := g.dependents[memberType][parent]; n > 1 {
		g.dependents[memberType][parent] = n - 1
		g.contains[parent][memberType] = n - 1
		return
	}
	delete(g.dependents[memberType], parent)
	delete(g.contains[parent], memberType)
}

// UpdateMember moves one edge of parent from oldType to newType.
func (g *Graph) UpdateMember(parent, oldType, newType int) {
	if oldType == newType {
		return
	}
	g.DeleteMember(parent, oldType)
	g.AddMember(parent, newType)
}

// DependentTypes returns id and every type that holds it directly or
// through nested members, sorted by id.
func (g *Graph) DependentTypes(id int) []int {
	return sorted(g.reach(id, g.dependents))
}

// ContainedTypes returns id and every type it holds directly or through
// nested members, sorted by id.
func (g *Graph) ContainedTypes(id int) []int {
	return sorted(g.reach(id, g.contains))
}

// WillCreateCycle reports whether adding a member of type memberType to
// container would make a type contain itself.
func (g *Graph) WillCreateCycle(container, memberType int) bool {
	if container == memberType {
		return true
	}
	_, cyclic := g.reach(container, g.dependents)[memberType]
	return cyclic
}

// IsTypeContainedIn reports whether superType holds t, directly or through
// nested members. A type is considered contained in itself.
func (g *Graph) IsTypeContainedIn(superType, t int) bool {
	_, ok := g.reach(t, g.dependents)[superType]
	return ok
}

// EdgeCount returns how many members of type memberType parent holds.
func (g *Graph) EdgeCount(parent, memberType int) int {
	return g.dependents[memberType][parent]
}

func (g *Graph) reach(start int, edges map[int]map[int]int) map[int]struct{} {
	seen := map[int]struct{}{start: {}}
	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range edges[cur] {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return seen
}

func sorted(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
