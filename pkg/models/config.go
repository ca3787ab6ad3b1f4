package models

// Config is the root project configuration for martforge
type Config struct {
	Project      Project      `yaml:"project"`
	Targets      []Target     `yaml:"targets"`
	Vars         Vars         `yaml:"vars"`
	Seed         Seed         `yaml:"seed"`
	Checks       ChecksConfig `yaml:"checks"`
	Repositories []Repository `yaml:"repositories"`
}

// Project identifies the mart project and where its model overrides live
type Project struct {
	Name      string `yaml:"name"`
	ModelsDir string `yaml:"models_dir"` // Local directory of .sql model overrides
	Target    string `yaml:"target"`     // Default target name
}

// Target is a warehouse connection profile
type Target struct {
	Name      string `yaml:"name"`    // Profile name (e.g., "dev", "prod")
	Adapter   string `yaml:"adapter"` // "snowflake", "postgres" or "mysql"
	Account   string `yaml:"account"` // Snowflake account locator
	Host      string `yaml:"host"`    // Host for postgres/mysql
	Port      int    `yaml:"port"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"` // Optional; keyring/env used when empty
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Warehouse string `yaml:"warehouse"` // Snowflake only
	Role      string `yaml:"role"`      // Snowflake only
	Timeout   string `yaml:"timeout"`   // Connection timeout, e.g. "30s"
}

// Vars are values substituted into model SQL at compile time
type Vars struct {
	SessionTimeoutMinutes int `yaml:"session_timeout_minutes"`
}

// Seed controls synthetic data generation
type Seed struct {
	RandomSeed int64 `yaml:"random_seed"`
	Users      int   `yaml:"users"`
	Products   int   `yaml:"products"`
	Events     int   `yaml:"events"`
	Sales      int   `yaml:"sales"`
	BatchSize  int   `yaml:"batch_size"`
}

// ChecksConfig configures data-quality checks
type ChecksConfig struct {
	Enabled bool     `yaml:"enabled"`
	Skip    []string `yaml:"skip"` // Check names to skip
}

// Repository is a git repository holding model overrides
type Repository struct {
	Name   string `yaml:"name"`
	GitURL string `yaml:"git_url"`
	Branch string `yaml:"branch"`
	Path   string `yaml:"path"` // Local checkout path
}

// DefaultVars returns the default model variables
func DefaultVars() Vars {
	return Vars{SessionTimeoutMinutes: 30}
}

// DefaultSeed returns the default seed sizing
func DefaultSeed() Seed {
	return Seed{
		RandomSeed: 42,
		Users:      1000,
		Products:   100,
		Events:     50000,
		Sales:      5000,
		BatchSize:  500,
	}
}

// FindTarget returns the named target, or the default when name is empty
func (c *Config) FindTarget(name string) (*Target, bool) {
	if name == "" {
		name = c.Project.Target
	}
	for i := range c.Targets {
		if c.Targets[i].Name == name {
			return &c.Targets[i], true
		}
	}
	return nil, false
}
