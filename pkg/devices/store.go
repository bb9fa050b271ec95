// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package devices keeps the latest decoded state of every device heard on air.
package devices

import (
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/Thermoquad/enostat/pkg/eep"
	"github.com/Thermoquad/enostat/pkg/erp1"
)

// State is the last known state of one device
type State struct {
	ID       erp1.DeviceID
	Name     string
	Profile  eep.ProfileID
	Known    bool // registered with a profile
	RORG     erp1.RORG
	Fields   []string // field names in payload order
	Values   eep.Values
	Payload  []byte
	RSSI     *int8
	Repeated int

	FirstSeen time.Time
	LastSeen  time.Time
	Telegrams uint64
	Errors    uint64
	LastError string
}

// Store tracks device states. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	states map[erp1.DeviceID]*State
	now    func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		states: make(map[erp1.DeviceID]*State),
		now:    time.Now,
	}
}

// Update records a telegram together with its decode outcome. r is nil when
// decoding failed, in which case err describes why.
func (s *Store) Update(t *erp1.Telegram, r *eep.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	st, ok := s.states[t.SenderID]
	if !ok {
		st = &State{ID: t.SenderID, FirstSeen: now}
		s.states[t.SenderID] = st
	}

	st.LastSeen = now
	st.Telegrams++
	st.RORG = t.RORG
	st.Payload = append(st.Payload[:0], t.Payload...)
	st.RSSI = t.RSSI
	st.Repeated = t.RepeaterCount()

	if err != nil {
		st.Errors++
		st.LastError = err.Error()
	}
	if r == nil {
		return
	}

	st.Known = true
	st.Name = r.Device.Name
	st.Profile = r.Profile.ID
	st.Values = r.Values
	st.Fields = st.Fields[:0]
	for _, f := range r.Fields {
		st.Fields = append(st.Fields, f.Name)
	}
	st.LastError = ""
}

// Get returns a copy of one device state
func (s *Store) Get(id erp1.DeviceID) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[id]
	if !ok {
		return State{}, false
	}
	return st.clone(), true
}

// Snapshot returns copies of all states ordered by device ID
func (s *Store) Snapshot() []State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]State, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of devices seen
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// Reset forgets all devices
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.states)
}

func (st *State) clone() State {
	c := *st
	c.Fields = append([]string(nil), st.Fields...)
	c.Payload = append([]byte(nil), st.Payload...)
	c.Values = maps.Clone(st.Values)
	if st.RSSI != nil {
		rssi := *st.RSSI
		c.RSSI = &rssi
	}
	return c
}
