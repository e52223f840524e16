package binding

// HandlerSet is an insertion-ordered set of handlers deduplicated by Key.
// It is not safe for concurrent mutation; dispatchers guard it themselves.
type HandlerSet struct {
	handlers []Handler
	index    map[Key]int
}

// NewHandlerSet returns a set holding handlers, dropping duplicates.
func NewHandlerSet(handlers ...Handler) *HandlerSet {
	s := &HandlerSet{index: make(map[Key]int, len(handlers))}
	for _, h := range handlers {
		s.Add(h)
	}
	return s
}

// Add inserts h unless a handler with the same Key is already present.
func (s *HandlerSet) Add(h Handler) bool {
	if h == nil {
		return false
	}
	if s.index == nil {
		s.index = make(map[Key]int)
	}
	key := h.Key()
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = len(s.handlers)
	s.handlers = append(s.handlers, h)
	return true
}

// Remove deletes the handler equal to h and returns the instance that was
// stored, which may be a different value than h.
func (s *HandlerSet) Remove(h Handler) (Handler, bool) {
	if s == nil || h == nil {
		return nil, false
	}
	i, ok := s.index[h.Key()]
	if !ok {
		return nil, false
	}
	stored := s.handlers[i]
	delete(s.index, stored.Key())
	copy(s.handlers[i:], s.handlers[i+1:])
	s.handlers[len(s.handlers)-1] = nil
	s.handlers = s.handlers[:len(s.handlers)-1]
	for j := i; j < len(s.handlers); j++ {
		s.index[s.handlers[j].Key()] = j
	}
	return stored, true
}

// Get returns the stored handler with the given key.
func (s *HandlerSet) Get(key Key) (Handler, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return s.handlers[i], true
}

func (s *HandlerSet) Contains(h Handler) bool {
	if s == nil || h == nil {
		return false
	}
	_, ok := s.index[h.Key()]
	return ok
}

func (s *HandlerSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.handlers)
}

// Handlers returns a copy of the members in insertion order.
func (s *HandlerSet) Handlers() []Handler {
	if s == nil {
		return nil
	}
	out := make([]Handler, len(s.handlers))
	copy(out, s.handlers)
	return out
}
