package depgraph

import (
	"reflect"
	"testing"
)

// ids used below: 1 int, 2 uint, 3 inner, 4 outer, 5 unrelated
func buildNested() *Graph {
	g := New()
	for id := 1; id <= 5; id++ {
		g.AddType(id)
	}
	g.AddMember(3, 1) // inner { int }
	g.AddMember(3, 2) // inner { uint }
	g.AddMember(4, 3) // outer { inner }
	g.AddMember(4, 1) // outer { int }
	return g
}

func TestDependentTypes(t *testing.T) {
	g := buildNested()

	tests := []struct {
		id   int
		want []int
	}{
		{1, []int{1, 3, 4}},
		{2, []int{2, 3, 4}},
		{3, []int{3, 4}},
		{4, []int{4}},
		{5, []int{5}},
	}
	for _, tt := range tests {
		if got := g.DependentTypes(tt.id); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("DependentTypes(%d) = %v, want %v", tt.id, got, tt.want)
		}
	}

	if got := g.ContainedTypes(4); !reflect.DeepEqual(got, []int{1, 2, 3, 4}) {
		t.Errorf("ContainedTypes(4) = %v", got)
	}
}

func TestWillCreateCycle(t *testing.T) {
	g := buildNested()

	tests := []struct {
		name      string
		container int
		member    int
		want      bool
	}{
		{"self", 3, 3, true},
		{"direct back edge", 3, 4, true},
		{"transitive back edge", 1, 4, true},
		{"forward edge", 4, 2, false},
		{"unrelated", 5, 4, false},
		{"into leaf", 5, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.WillCreateCycle(tt.container, tt.member); got != tt.want {
				t.Errorf("WillCreateCycle(%d, %d) = %v, want %v", tt.container, tt.member, got, tt.want)
			}
		})
	}
}

func TestIsTypeContainedIn(t *testing.T) {
	g := buildNested()

	if !g.IsTypeContainedIn(4, 1) {
		t.Error("outer should contain int")
	}
	if !g.IsTypeContainedIn(4, 4) {
		t.Error("a type is contained in itself")
	}
	if g.IsTypeContainedIn(3, 4) {
		t.Error("inner should not contain outer")
	}
}

func TestParallelEdges(t *testing.T) {
	g := New()
	g.AddMember(2, 1)
	g.AddMember(2, 1)

	if n := g.EdgeCount(2, 1); n != 2 {
		t.Fatalf("EdgeCount = %d, want 2", n)
	}

	g.DeleteMember(2, 1)
	if !g.IsTypeContainedIn(2, 1) {
		t.Fatal("one remaining member should keep the edge")
	}

	g.DeleteMember(2, 1)
	if g.IsTypeContainedIn(2, 1) {
		t.Fatal("edge should be gone after deleting both members")
	}
}

func TestUpdateMember(t *testing.T) {
	g := buildNested()

	g.UpdateMember(4, 1, 2)
	if g.EdgeCount(4, 1) != 0 || g.EdgeCount(4, 2) != 1 {
		t.Fatalf("edges after update: int=%d uint=%d", g.EdgeCount(4, 1), g.EdgeCount(4, 2))
	}
	if got := g.DependentTypes(1); !reflect.DeepEqual(got, []int{1, 3, 4}) {
		t.Errorf("int is still reachable through inner, got %v", got)
	}
}

func TestDeleteType(t *testing.T) {
	g := buildNested()

	affected := g.DeleteType(3)
	if !reflect.DeepEqual(affected, []int{3, 4}) {
		t.Fatalf("DeleteType(3) = %v, want [3 4]", affected)
	}
	if g.HasType(3) {
		t.Fatal("type 3 should be removed")
	}
	if got := g.DependentTypes(2); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("DependentTypes(2) = %v, want [2]", got)
	}
	if got := g.DependentTypes(1); !reflect.DeepEqual(got, []int{1, 4}) {
		t.Errorf("DependentTypes(1) = %v, want [1 4]", got)
	}
}
