package types

import "sort"

// captureSizes records the current size of every affected type except
// function prototypes, whose size does not follow their arguments.
func (tx *txn) captureSizes(affected []int) map[int]int {
	sizes := make(map[int]int, len(affected))
	for _, id := range affected {
		t, ok := tx.m.types[id]
		if !ok || t.category == FunctionPrototype {
			continue
		}
		sizes[id] = t.BitSize()
	}
	return sizes
}

// ensureConsistency fixes member offsets of every type in affected except
// changed, after changed was resized. oldSizes holds the sizes captured
// before the change. Structs are fixed bottom-up; other categories derive
// their size from members and need no offset work.
func (tx *txn) ensureConsistency(affected []int, changed *Type, oldSizes map[int]int) error {
	affectedSet := make(map[int]bool, len(affected))
	inconsistent := make(map[int]bool, len(affected))
	for _, id := range affected {
		affectedSet[id] = true
		if changed == nil || id != changed.id {
			inconsistent[id] = true
		}
	}

	for len(inconsistent) > 0 {
		id := lowest(inconsistent)
		t, ok := tx.m.types[id]
		if !ok {
			delete(inconsistent, id)
			continue
		}
		if err := tx.settle(t, affectedSet, inconsistent, oldSizes); err != nil {
			return tx.diverged(err)
		}
	}

	tx.typesUpdated(tx.m.resolveIDs(affected))
	return nil
}

// adjustMemberOffsets shifts the members of t that follow a member whose
// type changed size. Member types that are still inconsistent are fixed
// first so their new size is final when it is read.
func (tx *txn) adjustMemberOffsets(t *Type, affected, inconsistent map[int]bool, oldSizes map[int]int) error {
	members := t.Members()
	start := -1
	for i, mem := range members {
		if affected[mem.baseType.id] {
			start = i
			break
		}
	}
	if start < 0 {
		delete(inconsistent, t.id)
		return nil
	}

	sizeDelta := 0
	for _, mem := range members[start:] {
		base := mem.baseType
		if inconsistent[base.id] {
			if err := tx.settle(base, affected, inconsistent, oldSizes); err != nil {
				return err
			}
		}
		if sizeDelta != 0 {
			if err := tx.updatePosition(mem, mem.position+sizeDelta); err != nil {
				return err
			}
		}
		if old, ok := oldSizes[base.id]; ok {
			sizeDelta += base.BitSize() - old
		}
	}

	delete(inconsistent, t.id)
	return nil
}

// settle makes t consistent. Unions and arrays only need their nested
// structs fixed; their own size follows from their members.
func (tx *txn) settle(t *Type, affected, inconsistent map[int]bool, oldSizes map[int]int) error {
	if t.category == Struct {
		return tx.adjustMemberOffsets(t, affected, inconsistent, oldSizes)
	}
	delete(inconsistent, t.id)
	for _, mem := range t.Members() {
		if inconsistent[mem.baseType.id] {
			if err := tx.settle(mem.baseType, affected, inconsistent, oldSizes); err != nil {
				return err
			}
		}
	}
	return nil
}

func lowest(set map[int]bool) int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids[0]
}
