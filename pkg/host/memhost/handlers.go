package memhost

// handlers is an ordered set of subscribers.
type handlers[T any] struct {
	next  int
	order []int
	m     map[int]T
}

func (hs *handlers[T]) add(h T) *subscription {
	if hs.m == nil {
		hs.m = make(map[int]T)
	}
	hs.next++
	key := hs.next
	hs.m[key] = h
	hs.order = append(hs.order, key)
	return &subscription{cancel: func() { hs.remove(key) }}
}

func (hs *handlers[T]) remove(key int) {
	delete(hs.m, key)
	for i, k := range hs.order {
		if k == key {
			hs.order = append(hs.order[:i], hs.order[i+1:]...)
			return
		}
	}
}

func (hs *handlers[T]) len() int { return len(hs.m) }

// each calls fn for every handler subscribed when each was called. Handlers
// cancelled during delivery are skipped.
func (hs *handlers[T]) each(fn func(T)) {
	keys := make([]int, len(hs.order))
	copy(keys, hs.order)
	for _, k := range keys {
		h, ok := hs.m[k]
		if !ok {
			continue
		}
		fn(h)
	}
}

type subscription struct {
	cancel func()
	done   bool
}

func (s *subscription) Cancel() {
	if s.done {
		return
	}
	s.done = true
	s.cancel()
}
