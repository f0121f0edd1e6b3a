package services

import (
	"slices"
	"sync"
)

// keyedMutex hands out one mutex per key and drops it once nobody holds or
// waits on it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock acquires every distinct non-empty key in sorted order and returns a
// function releasing them all.
func (k *keyedMutex) Lock(keys ...string) (unlock func()) {
	ordered := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != "" {
			ordered = append(ordered, key)
		}
	}
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	held := make([]*refMutex, 0, len(ordered))
	for _, key := range ordered {
		held = append(held, k.acquire(key))
	}

	return func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			k.release(ordered[i], held[i])
		}
	}
}

func (k *keyedMutex) acquire(key string) *refMutex {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return m
}

func (k *keyedMutex) release(key string, m *refMutex) {
	m.Unlock()

	k.mu.Lock()
	m.refs--
	if m.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

// size reports how many keys currently have a live mutex.
func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
