// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/dhruv465/Website-Builder-sub000/pkg/config"
	"github.com/dhruv465/Website-Builder-sub000/pkg/logger"
)

const (
	// LogFileEnvVar is the environment variable name for log file path
	LogFileEnvVar = "LOG_FILE"
	// LogLevelEnvVar is the environment variable name for log level
	LogLevelEnvVar = "LOG_LEVEL"
	// LogFormatEnvVar is the environment variable name for log format
	LogFormatEnvVar = "LOG_FORMAT"

	DefaultLogLevel  = "info"
	DefaultLogFormat = logger.FormatSimple
)

type logSettings struct {
	Level  string
	File   string
	Format string
}

// resolveLogSettings picks each setting by priority:
// CLI flag > environment variable > config file > default.
func resolveLogSettings(flagLevel, flagFile, flagFormat string, cfg *config.LoggerConfig) logSettings {
	var fromCfg config.LoggerConfig
	if cfg != nil {
		fromCfg = *cfg
	}
	return logSettings{
		Level:  firstSet(flagLevel, os.Getenv(LogLevelEnvVar), fromCfg.Level, DefaultLogLevel),
		File:   firstSet(flagFile, os.Getenv(LogFileEnvVar), fromCfg.File),
		Format: firstSet(flagFormat, os.Getenv(LogFormatEnvVar), fromCfg.Format, DefaultLogFormat),
	}
}

func firstSet(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

var (
	logMu      sync.Mutex
	logCurrent logSettings
	logCleanup func()
)

// initLogger installs the process logger, reopening the log file when it
// changed.
func initLogger(s logSettings) error {
	level, err := logger.ParseLevel(s.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	logMu.Lock()
	defer logMu.Unlock()

	output := os.Stderr
	var cleanup func()
	if s.File != "" {
		file, closeFn, err := logger.OpenLogFile(s.File)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		output, cleanup = file, closeFn
	}

	logger.Init(level, output, s.Format)

	if logCleanup != nil {
		logCleanup()
	}
	logCurrent, logCleanup = s, cleanup
	return nil
}

// applyConfigLogger re-initialises the logger when the config file changes
// a setting that no flag or environment variable fixed.
func applyConfigLogger(cli *CLI, cfg *config.LoggerConfig) error {
	next := resolveLogSettings(cli.LogLevel, cli.LogFile, cli.LogFormat, cfg)
	logMu.Lock()
	same := next == logCurrent
	logMu.Unlock()
	if same {
		return nil
	}
	return initLogger(next)
}

func closeLogFile() {
	logMu.Lock()
	defer logMu.Unlock()
	if logCleanup != nil {
		logCleanup()
		logCleanup = nil
	}
}
