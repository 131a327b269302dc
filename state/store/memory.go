// Package store provides in-memory state.Store implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/warp/swap-engine/state"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	maps map[state.Map]map[string]string
}

func NewMemory() *Memory {
	return &Memory{maps: make(map[state.Map]map[string]string)}
}

func (m *Memory) Get(_ context.Context, name state.Map, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.getLocked(name, key)
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, name state.Map, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(name, key, value)
	return nil
}

func (m *Memory) Delete(_ context.Context, name state.Map, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(name, key)
	return nil
}

func (m *Memory) Scan(_ context.Context, name state.Map, prefix string) ([]state.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scanLocked(name, prefix), nil
}

// Reset drops every map.
func (m *Memory) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maps = make(map[state.Map]map[string]string)
	return nil
}

func (m *Memory) getLocked(name state.Map, key string) (string, bool) {
	v, ok := m.maps[name][key]
	return v, ok
}

func (m *Memory) setLocked(name state.Map, key, value string) {
	entries, ok := m.maps[name]
	if !ok {
		entries = make(map[string]string)
		m.maps[name] = entries
	}
	entries[key] = value
}

func (m *Memory) deleteLocked(name state.Map, key string) {
	delete(m.maps[name], key)
}

func (m *Memory) scanLocked(name state.Map, prefix string) []state.Entry {
	var result []state.Entry
	for k, v := range m.maps[name] {
		if strings.HasPrefix(k, prefix) {
			result = append(result, state.Entry{Key: k, Value: v})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// The lock is held for the whole call, so transactions are serialized.
func (tm *TxMemory) WithTx(_ context.Context, fn func(state.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.maps = snapshot
		return err
	}

	// Commit (already done via direct writes)
	return nil
}

func (tm *TxMemory) snapshot() map[state.Map]map[string]string {
	cp := make(map[state.Map]map[string]string, len(tm.maps))
	for name, entries := range tm.maps {
		inner := make(map[string]string, len(entries))
		for k, v := range entries {
			inner[k] = v
		}
		cp[name] = inner
	}
	return cp
}

type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) Get(_ context.Context, name state.Map, key string) (string, bool, error) {
	v, ok := tv.parent.getLocked(name, key)
	return v, ok, nil
}

func (tv *txMemoryView) Set(_ context.Context, name state.Map, key, value string) error {
	tv.parent.setLocked(name, key, value)
	return nil
}

func (tv *txMemoryView) Delete(_ context.Context, name state.Map, key string) error {
	tv.parent.deleteLocked(name, key)
	return nil
}

func (tv *txMemoryView) Scan(_ context.Context, name state.Map, prefix string) ([]state.Entry, error) {
	return tv.parent.scanLocked(name, prefix), nil
}
