package keymutex

import (
	"cmp"
	"slices"
	"sync"
)

// KeyMutex 依 key 提供互斥鎖，不同 key 之間不會互相阻塞。
// 沒有人持有或等待的 key 會被移除，map 不會無限成長。
type KeyMutex[K cmp.Ordered] struct {
	mu    sync.Mutex
	locks map[K]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New 建立 KeyMutex
func New[K cmp.Ordered]() *KeyMutex[K] {
	return &KeyMutex[K]{locks: make(map[K]*entry)}
}

// Lock 鎖定 key，回傳解鎖函式
func (k *KeyMutex[K]) Lock(key K) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// LockAll 依遞增順序鎖定所有 key (重複的 key 只鎖一次)，回傳解鎖函式
//
// 所有呼叫者都以相同順序取得鎖，因此不會形成循環等待。
func (k *KeyMutex[K]) LockAll(keys []K) (unlock func()) {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	unlocks := make([]func(), 0, len(sorted))
	for _, key := range sorted {
		unlocks = append(unlocks, k.Lock(key))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// Len 目前被持有或等待中的 key 數量
func (k *KeyMutex[K]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
