package handlers

import "sync"

// ProjectSerializer hands out one mutex per project so read-modify-write
// cycles on the same snapshot run one at a time. Entries are reference counted
// and dropped when no writer holds or waits for them.
type ProjectSerializer struct {
	mu    sync.Mutex
	locks map[string]*projectLock
}

type projectLock struct {
	mu   sync.Mutex
	refs int
}

// NewProjectSerializer creates an empty serializer
func NewProjectSerializer() *ProjectSerializer {
	return &ProjectSerializer{locks: make(map[string]*projectLock)}
}

// Lock blocks until the caller owns projectID and returns the matching unlock
func (s *ProjectSerializer) Lock(projectID string) func() {
	s.mu.Lock()
	l, ok := s.locks[projectID]
	if !ok {
		l = &projectLock{}
		s.locks[projectID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, projectID)
		}
		s.mu.Unlock()
	}
}

// Len returns the number of projects currently locked or awaited
func (s *ProjectSerializer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
