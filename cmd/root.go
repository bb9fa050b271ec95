// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultBaudRate = 57600

var (
	cfgFile string

	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "enostat",
	Short: "EnOcean Serial Protocol Analyzer",
	Long: `Enostat - A CLI tool for monitoring and analyzing EnOcean ESP3 traffic.

Decodes ESP3 frames from an EnOcean USB gateway (USB300 and compatible),
interprets ERP1 radio telegrams and EEP device profiles, and sends commands
and telegrams back to the gateway.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 57600]
  WebSocket: --url ws://host/path [--username user]

Devices and custom profiles are read from the config file
($HOME/.enostat.yaml or --config). Every setting can also be given as an
environment variable with the ENOSTAT_ prefix (e.g. ENOSTAT_LOG_LEVEL).

For WebSocket authentication, the password is read from the ENOSTAT_PASSWORD
environment variable, or prompted interactively if not set.`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.enostat.yaml)")

	// Serial connection flags
	flags.StringVarP(&portName, "port", "p", "", "Serial port device")
	flags.IntVarP(&baudRate, "baud", "b", defaultBaudRate, "Baud rate (serial only)")

	// WebSocket connection flags
	flags.StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	flags.StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	flags.BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Logging
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console, json)")
	flags.String("log-file", "", "Also write logs to this file (rotated)")

	_ = viper.BindPFlag("port", flags.Lookup("port"))
	_ = viper.BindPFlag("baud", flags.Lookup("baud"))
	_ = viper.BindPFlag("url", flags.Lookup("url"))
	_ = viper.BindPFlag("username", flags.Lookup("username"))
	_ = viper.BindPFlag("no_ssl_verify", flags.Lookup("no-ssl-verify"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("log.file", flags.Lookup("log-file"))

	viper.SetDefault("gateway.queue_size", 64)
	viper.SetDefault("gateway.send_rate", 10)
	viper.SetDefault("gateway.send_burst", 3)
}

// initConfig reads the config file and environment, then builds the logger
func initConfig(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(".enostat")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ENOSTAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Flags win over the config file only when given; viper handles that,
	// so copy the effective values back
	portName = viper.GetString("port")
	baudRate = viper.GetInt("baud")
	wsURL = viper.GetString("url")
	wsUsername = viper.GetString("username")
	wsNoSSLVerify = viper.GetBool("no_ssl_verify")

	l, err := initLogger(loggingConfigFromViper(viper.GetViper()))
	if err != nil {
		return err
	}
	logger = l
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Info("config loaded", zap.String("file", used))
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
