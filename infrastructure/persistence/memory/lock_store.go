package memory

import (
	"context"
	"sort"
	"sync"

	"diagramsync/domain/core/entities"
)

type resourceKey struct {
	diagramID  string
	resourceID string
}

// LockStore keeps lock records in memory with one record per resource
type LockStore struct {
	mu         sync.Mutex
	byID       map[string]*entities.Lock
	byResource map[resourceKey]string
}

// NewLockStore creates an empty lock store
func NewLockStore() *LockStore {
	return &LockStore{
		byID:       make(map[string]*entities.Lock),
		byResource: make(map[resourceKey]string),
	}
}

// FindByResource returns the lock on a resource, or nil
func (s *LockStore) FindByResource(ctx context.Context, diagramID, resourceID string) (*entities.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byResource[resourceKey{diagramID, resourceID}]
	if !ok {
		return nil, nil
	}
	lock := *s.byID[id]
	return &lock, nil
}

// Put creates or overwrites the record of lock's resource
func (s *LockStore) Put(ctx context.Context, lock *entities.Lock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := resourceKey{lock.DiagramID, lock.ResourceID}
	if previous, ok := s.byResource[key]; ok && previous != lock.ID {
		delete(s.byID, previous)
	}
	stored := *lock
	s.byID[lock.ID] = &stored
	s.byResource[key] = lock.ID
	return nil
}

// DeleteByID removes a lock by id when it belongs to diagramID
func (s *LockStore) DeleteByID(ctx context.Context, diagramID, lockID string) (*entities.Lock, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.byID[lockID]
	if !ok || lock.DiagramID != diagramID {
		return nil, false, nil
	}
	delete(s.byID, lockID)
	delete(s.byResource, resourceKey{lock.DiagramID, lock.ResourceID})
	return lock, true, nil
}

// ListByDiagram returns the diagram's locks ordered by resource id
func (s *LockStore) ListByDiagram(ctx context.Context, diagramID string) ([]*entities.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	locks := make([]*entities.Lock, 0)
	for _, lock := range s.byID {
		if lock.DiagramID == diagramID {
			copied := *lock
			locks = append(locks, &copied)
		}
	}
	sort.Slice(locks, func(i, j int) bool { return locks[i].ResourceID < locks[j].ResourceID })
	return locks, nil
}
