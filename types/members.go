package types

import "sort"

// memberSet keeps members in order plus an id index. Sorted position is
// not a uniqueness key: two members may share an offset.
type memberSet struct {
	ordered []*Member
	byID    map[int]*Member
}

func (s *memberSet) add(m *Member) {
	if s.byID == nil {
		s.byID = make(map[int]*Member)
	}
	if _, ok := s.byID[m.id]; ok {
		return
	}
	i := sort.Search(len(s.ordered), func(i int) bool { return m.less(s.ordered[i]) })
	s.ordered = append(s.ordered, nil)
	copy(s.ordered[i+1:], s.ordered[i:])
	s.ordered[i] = m
	s.byID[m.id] = m
}

func (s *memberSet) remove(m *Member) bool {
	if _, ok := s.byID[m.id]; !ok {
		return false
	}
	delete(s.byID, m.id)
	for i, cur := range s.ordered {
		if cur.id == m.id {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			break
		}
	}
	return true
}

func (s *memberSet) get(id int) *Member {
	return s.byID[id]
}

func (s *memberSet) contains(m *Member) bool {
	_, ok := s.byID[m.id]
	return ok
}

func (s *memberSet) len() int {
	return len(s.ordered)
}

func (s *memberSet) last() *Member {
	if len(s.ordered) == 0 {
		return nil
	}
	return s.ordered[len(s.ordered)-1]
}

func (s *memberSet) first() *Member {
	if len(s.ordered) == 0 {
		return nil
	}
	return s.ordered[0]
}

// snapshot returns a copy the caller may keep across mutations.
func (s *memberSet) snapshot() []*Member {
	out := make([]*Member, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// indexOf returns the sorted position of m, or -1.
func (s *memberSet) indexOf(m *Member) int {
	for i, cur := range s.ordered {
		if cur.id == m.id {
			return i
		}
	}
	return -1
}
