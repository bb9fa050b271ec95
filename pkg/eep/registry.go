// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package eep

import (
	"sort"
	"sync"

	"github.com/Thermoquad/enostat/pkg/erp1"
)

// Device is a registry entry
type Device struct {
	ID      erp1.DeviceID
	Profile ProfileID
	Name    string
}

// Registry maps sender IDs to device profiles.
// It is safe for concurrent use; decoding only takes the read lock.
type Registry struct {
	mu      sync.RWMutex
	devices map[erp1.DeviceID]Device
}

// NewRegistry creates a registry holding the given devices
func NewRegistry(devices ...Device) *Registry {
	r := &Registry{devices: make(map[erp1.DeviceID]Device, len(devices))}
	for _, d := range devices {
		r.devices[d.ID] = d
	}
	return r
}

// Register adds or replaces a device
func (r *Registry) Register(d Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[d.ID] = d
}

// Unregister removes a device, reporting whether it was present
func (r *Registry) Unregister(id erp1.DeviceID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.devices[id]
	delete(r.devices, id)
	return ok
}

// Lookup returns the device registered for a sender ID
func (r *Registry) Lookup(id erp1.DeviceID) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	return d, ok
}

// Devices returns all devices ordered by ID
func (r *Registry) Devices() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered devices
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
