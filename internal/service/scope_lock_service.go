package service

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// Interval for cleaning up stale scope mutexes
	scopeLockCleanupInterval = 10 * time.Minute

	// How long a mutex must be unused before cleanup
	scopeLockStaleThreshold = 10 * time.Minute
)

// ScopeLockService serializes queue mutations per (doctor, date) scope.
// Every Append, InsertAtHead, Reorder and Remove for one scope runs under
// the same mutex; different scopes proceed in parallel.
//
// The lock complements the row locks taken inside the transaction: it
// keeps two workers of this process from even opening competing
// transactions on the same waiting line.
type ScopeLockService struct {
	log *logrus.Logger

	scopeMu sync.Map // map[string]*scopeMutex

	// Graceful shutdown
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// scopeMutex tracks mutex usage for cleanup
type scopeMutex struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix timestamp
}

// NewScopeLockService creates a new ScopeLockService and starts the
// background cleanup goroutine. Call Stop() during graceful shutdown.
func NewScopeLockService(log *logrus.Logger) *ScopeLockService {
	svc := &ScopeLockService{
		log:      log,
		stopChan: make(chan struct{}),
	}

	svc.wg.Add(1)
	go svc.cleanupLoop()

	return svc
}

// Stop gracefully shuts down the service. Safe to call multiple times.
func (s *ScopeLockService) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stopChan)
		s.wg.Wait()
		s.log.Info("ScopeLockService stopped")
	}
}

// Lock acquires the mutex for one (doctor, date) scope and returns the
// unlock function.
func (s *ScopeLockService) Lock(doctorID uuid.UUID, date time.Time) func() {
	key := fmt.Sprintf("%s:%s", doctorID.String(), date.UTC().Format("2006-01-02"))
	sm := s.getScopeMutex(key)
	sm.mu.Lock()
	return sm.mu.Unlock
}

func (s *ScopeLockService) getScopeMutex(key string) *scopeMutex {
	sm, _ := s.scopeMu.LoadOrStore(key, &scopeMutex{})
	result := sm.(*scopeMutex)
	result.lastUsed.Store(time.Now().Unix())
	return result
}

func (s *ScopeLockService) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(scopeLockCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			s.log.Debug("Scope lock cleanup goroutine stopping")
			return
		case <-ticker.C:
			s.cleanupStale()
		}
	}
}

// cleanupStale removes unused mutexes using TryLock for safety. The
// lastUsed check happens inside the lock so a concurrent user cannot slip
// between check and delete.
func (s *ScopeLockService) cleanupStale() {
	cutoffTime := time.Now().Add(-scopeLockStaleThreshold).Unix()
	var cleaned int

	s.scopeMu.Range(func(key, value any) bool {
		sm, ok := value.(*scopeMutex)
		if !ok {
			return true
		}

		if sm.mu.TryLock() {
			if sm.lastUsed.Load() < cutoffTime {
				s.scopeMu.Delete(key)
				cleaned++
			}
			sm.mu.Unlock()
		}
		return true
	})

	if cleaned > 0 {
		s.log.Debugf("Cleaned up %d stale scope mutexes", cleaned)
	}
}
