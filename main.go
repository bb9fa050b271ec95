// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Enostat - EnOcean Serial Protocol Analyzer
//
// A CLI tool for monitoring, decoding and sending EnOcean radio telegrams
// through an ESP3 gateway (USB stick or WebSocket bridge).

package main

import (
	"os"

	"github.com/Thermoquad/enostat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
