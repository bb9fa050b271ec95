// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/enostat/pkg/eep"
)

var profilesFields bool

var profilesCmd = &cobra.Command{
	Use:   "profiles [EEP...]",
	Short: "List known EEP profiles and configured devices",
	Long: `List the EEP profiles available for decoding (built-in and configured)
and the devices registered in the configuration file.

Pass one or more profile IDs (e.g. A5-04-01) to show their field layout.`,
	RunE: runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.Flags().BoolVarP(&profilesFields, "fields", "f", false, "Show field layout of every profile")
}

func runProfiles(cmd *cobra.Command, args []string) error {
	decoder, err := loadDecoder()
	if err != nil {
		return err
	}
	catalog := decoder.Catalog()

	if len(args) > 0 {
		for _, arg := range args {
			id, err := eep.ParseProfileID(arg)
			if err != nil {
				return err
			}
			profile, ok := catalog.Lookup(id)
			if !ok {
				return fmt.Errorf("%w: %s", eep.ErrUnknownProfile, id)
			}
			fmt.Print(formatProfile(profile, true))
		}
		return nil
	}

	fmt.Printf("Profiles:\n")
	for _, profile := range catalog.Profiles() {
		fmt.Print(formatProfile(profile, profilesFields))
	}

	devs := decoder.Registry().Devices()
	fmt.Printf("\nConfigured devices: %d\n", len(devs))
	for _, d := range devs {
		fmt.Printf("  %s  %s  %s\n", d.ID, d.Profile, d.Name)
	}
	return nil
}

func formatProfile(p *eep.Profile, fields bool) string {
	var s strings.Builder
	fmt.Fprintf(&s, "  %s  %s\n", p.ID, p.Title)
	if !fields {
		return s.String()
	}

	for _, f := range p.Fields {
		s.WriteString(formatField(f, "    "))
	}
	if p.Selector != nil {
		s.WriteString(formatField(*p.Selector, "    "))
		for _, value := range slices.Sorted(maps.Keys(p.Variants)) {
			fmt.Fprintf(&s, "    %s = %d:\n", p.Selector.Name, value)
			for _, f := range p.Variants[value] {
				s.WriteString(formatField(f, "      "))
			}
		}
	}
	return s.String()
}

func formatField(f eep.Field, indent string) string {
	var s strings.Builder
	fmt.Fprintf(&s, "%s%-6s bits %3d..%-3d", indent, f.Name, f.Offset, f.Offset+f.Size-1)
	if f.Scale != nil {
		fmt.Fprintf(&s, "  %g..%g -> %g..%g %s", f.Scale.RawMin, f.Scale.RawMax, f.Scale.Min, f.Scale.Max, f.Unit)
	} else if f.Unit != "" {
		fmt.Fprintf(&s, "  %s", f.Unit)
	}
	if f.Description != "" {
		fmt.Fprintf(&s, "  %s", f.Description)
	}
	s.WriteString("\n")
	for _, raw := range slices.Sorted(maps.Keys(f.Enum)) {
		fmt.Fprintf(&s, "%s       %d: %s\n", indent, raw, f.Enum[raw])
	}
	return s.String()
}
