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

package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads .env files without overriding variables that are already
// set. With no paths it tries ./.env and ~/.sitepipe/.env. Missing files are
// skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, filepath.Join(home, ".sitepipe", ".env"))
		}
	}
	for _, p := range paths {
		if err := loadIfExists(p); err != nil {
			return err
		}
	}
	return nil
}

// LoadDotEnvForConfig loads the .env next to configPath, then the defaults.
func LoadDotEnvForConfig(configPath string) error {
	if configPath != "" {
		if err := loadIfExists(filepath.Join(filepath.Dir(configPath), ".env")); err != nil {
			return err
		}
	}
	return LoadDotEnv()
}

func loadIfExists(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(path); err != nil {
		return err
	}
	slog.Debug("Loaded environment file", "path", path)
	return nil
}
