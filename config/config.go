// Copyright 2025 Poiesic Systems
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


// Package config loads application configuration for the kgingest CLI.
//
// Values come from, in increasing precedence: built-in defaults, an optional
// YAML file, and KGINGEST_* environment variables (KGINGEST_DB_PATH for
// db.path). Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/kgingest/core"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "KGINGEST"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	DB         DBConfig
	Owner      OwnerConfig
	Actor      ActorConfig
	Vocabulary VocabularyConfig
	Lake       LakeConfig
	Neo4j      Neo4jConfig
	Batch      BatchConfig
	Metrics    MetricsConfig
	Logging    LoggingConfig
}

type DBConfig struct {
	Path string
}

type OwnerConfig struct {
	ID string
}

type ActorConfig struct {
	ID   string
	Role string
}

type VocabularyConfig struct {
	// Path to a YAML vocabulary replacing the built-in tables. Empty uses the defaults.
	Path string
}

type LakeConfig struct {
	Enabled bool
	URL     string
	Timeout time.Duration
}

type Neo4jConfig struct {
	Enabled  bool
	URI      string
	Username string
	Password string
	Database string
}

type BatchConfig struct {
	Concurrency int
	ArchiveDir  string
}

type MetricsConfig struct {
	// Textfile is where run metrics are written in Prometheus text format
	// after each command. Empty disables the export.
	Textfile string
}

type LoggingConfig struct {
	Level string
}

// Load reads configuration from path, or from kgingest.yaml in the working
// directory or $HOME/.config/kgingest when path is empty. A missing default
// file is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("kgingest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/kgingest")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.path", "./kgingest.db")

	v.SetDefault("owner.id", "default")

	v.SetDefault("actor.id", "cli")
	v.SetDefault("actor.role", string(core.RoleMember))

	v.SetDefault("vocabulary.path", "")

	v.SetDefault("lake.enabled", false)
	v.SetDefault("lake.url", "")
	v.SetDefault("lake.timeout", "10s")

	v.SetDefault("neo4j.enabled", false)
	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "neo4j")

	v.SetDefault("batch.concurrency", 1)
	v.SetDefault("batch.archiveDir", "")

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("logging.level", "info")
}

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	if c.DB.Path == "" {
		return fmt.Errorf("%w: db.path is required", ErrInvalidConfig)
	}
	if c.Owner.ID == "" {
		return fmt.Errorf("%w: owner.id is required", ErrInvalidConfig)
	}
	if c.Actor.ID == "" {
		return fmt.Errorf("%w: actor.id is required", ErrInvalidConfig)
	}
	if _, err := c.ActorRole(); err != nil {
		return err
	}
	if c.Lake.Enabled && c.Lake.URL == "" {
		return fmt.Errorf("%w: lake.url is required when lake.enabled is set", ErrInvalidConfig)
	}
	if c.Lake.Timeout <= 0 {
		return fmt.Errorf("%w: lake.timeout must be positive", ErrInvalidConfig)
	}
	if c.Neo4j.Enabled && c.Neo4j.URI == "" {
		return fmt.Errorf("%w: neo4j.uri is required when neo4j.enabled is set", ErrInvalidConfig)
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("%w: batch.concurrency must be at least 1", ErrInvalidConfig)
	}
	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ActorRole parses actor.role.
func (c *Config) ActorRole() (core.Role, error) {
	role, err := core.ParseRole(c.Actor.Role)
	if err != nil {
		return "", fmt.Errorf("%w: actor.role: %w", ErrInvalidConfig, err)
	}
	return role, nil
}

// Identity returns the configured actor. Call Validate first.
func (c *Config) Identity() core.Actor {
	role, _ := c.ActorRole()
	return core.Actor{ID: c.Actor.ID, Role: role}
}
