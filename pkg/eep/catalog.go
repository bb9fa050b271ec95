// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package eep

import (
	"sort"
	"sync"
)

// Catalog holds the known profiles
type Catalog struct {
	mu       sync.RWMutex
	profiles map[ProfileID]*Profile
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{profiles: make(map[ProfileID]*Profile)}
}

// DefaultCatalog creates a catalog holding the built-in profiles
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, p := range BuiltinProfiles() {
		if err := c.Register(p); err != nil {
			panic(err)
		}
	}
	return c
}

// Register validates and adds a profile, replacing one with the same ID
func (c *Catalog) Register(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[p.ID] = p
	return nil
}

// Lookup returns the profile for an ID
func (c *Catalog) Lookup(id ProfileID) (*Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.profiles[id]
	return p, ok
}

// Profiles returns all profiles ordered by ID
func (c *Catalog) Profiles() []*Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Profile, 0, len(c.profiles))
	for _, p := range c.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}
