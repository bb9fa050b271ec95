// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package eep

import (
	"fmt"
	"strconv"

	"github.com/spf13/viper"

	"github.com/Thermoquad/enostat/pkg/erp1"
)

// DeviceConfig is a device entry of the configuration file
type DeviceConfig struct {
	ID   string `mapstructure:"id"`
	EEP  string `mapstructure:"eep"`
	Name string `mapstructure:"name"`
}

// ScaleConfig is the linear scaling of a field
type ScaleConfig struct {
	RawMin float64 `mapstructure:"raw_min"`
	RawMax float64 `mapstructure:"raw_max"`
	Min    float64 `mapstructure:"min"`
	Max    float64 `mapstructure:"max"`
}

// FieldConfig describes a user-defined field
type FieldConfig struct {
	Name        string            `mapstructure:"name"`
	Description string            `mapstructure:"description"`
	Offset      int               `mapstructure:"offset"`
	Size        int               `mapstructure:"size"`
	Unit        string            `mapstructure:"unit"`
	Scale       *ScaleConfig      `mapstructure:"scale"`
	Enum        map[string]string `mapstructure:"enum"`
}

// ProfileConfig describes a user-defined profile
type ProfileConfig struct {
	EEP    string        `mapstructure:"eep"`
	Title  string        `mapstructure:"title"`
	Fields []FieldConfig `mapstructure:"fields"`
}

// Config is the devices/profiles section of the configuration
type Config struct {
	Devices  []DeviceConfig  `mapstructure:"devices"`
	Profiles []ProfileConfig `mapstructure:"profiles"`
}

// LoadConfig reads the devices and profiles sections from v
func LoadConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse device configuration: %w", err)
	}
	return &cfg, nil
}

// ReadConfigFile loads a YAML, TOML or JSON configuration file
func ReadConfigFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return LoadConfig(v)
}

// Build creates a registry from the configured devices and registers the
// configured profiles into catalog. Every device must reference a profile
// known to the catalog.
func (c *Config) Build(catalog *Catalog) (*Registry, error) {
	for i, pc := range c.Profiles {
		p, err := pc.profile()
		if err != nil {
			return nil, fmt.Errorf("profiles[%d]: %w", i, err)
		}
		if err := catalog.Register(p); err != nil {
			return nil, fmt.Errorf("profiles[%d]: %w", i, err)
		}
	}

	registry := NewRegistry()
	for i, dc := range c.Devices {
		id, err := erp1.ParseDeviceID(dc.ID)
		if err != nil {
			return nil, fmt.Errorf("devices[%d]: %w", i, err)
		}
		profile, err := ParseProfileID(dc.EEP)
		if err != nil {
			return nil, fmt.Errorf("devices[%d]: %w", i, err)
		}
		if _, ok := catalog.Lookup(profile); !ok {
			return nil, fmt.Errorf("devices[%d]: %w: %s", i, ErrUnknownProfile, profile)
		}
		registry.Register(Device{ID: id, Profile: profile, Name: dc.Name})
	}

	return registry, nil
}

func (pc ProfileConfig) profile() (*Profile, error) {
	id, err := ParseProfileID(pc.EEP)
	if err != nil {
		return nil, err
	}

	p := &Profile{ID: id, Title: pc.Title}
	for _, fc := range pc.Fields {
		f := Field{
			Name:        fc.Name,
			Description: fc.Description,
			Offset:      fc.Offset,
			Size:        fc.Size,
			Unit:        fc.Unit,
		}
		if fc.Scale != nil {
			f.Scale = &Scale{RawMin: fc.Scale.RawMin, RawMax: fc.Scale.RawMax, Min: fc.Scale.Min, Max: fc.Scale.Max}
		}
		if len(fc.Enum) > 0 {
			f.Enum = make(map[uint64]string, len(fc.Enum))
			for k, label := range fc.Enum {
				raw, err := strconv.ParseUint(k, 0, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: field %s enum key %q", ErrInvalidProfile, fc.Name, k)
				}
				f.Enum[raw] = label
			}
		}
		p.Fields = append(p.Fields, f)
	}
	return p, nil
}
