package common

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// HTTP server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of the HTTP server.
type ServerConfig struct {
	// HTTP api settings
	Endpoint        string
	ShutdownTimeout time.Duration

	// Storage
	DataDir       string
	SweepInterval time.Duration

	// Authentication: username -> bcrypt hash
	Users    map[string]string
	Insecure bool

	// Logging configuration
	LogLevel string
}

// Validate checks the configuration for values the server can not start with
func (c *ServerConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("sweep interval must not be negative")
	}
	if len(c.Users) == 0 && !c.Insecure {
		return fmt.Errorf("no users configured (use --users, --users-file or --insecure)")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// UserNames returns the configured user names in sorted order
func (c *ServerConfig) UserNames() []string {
	names := make([]string, 0, len(c.Users))
	for name := range c.Users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// HTTP settings
	addSection("HTTP Server")
	addField("Endpoint", c.Endpoint)
	addField("Shutdown Timeout", c.ShutdownTimeout.String())

	// Storage
	addSection("Storage")
	addField("Data Directory", c.DataDir)
	addField("Sweep Interval", c.SweepInterval.String())

	// Authentication (never print the hashes)
	addSection("Authentication")
	if c.Insecure && len(c.Users) == 0 {
		addField("Mode", "disabled (insecure)")
	} else {
		addField("Mode", "basic")
		addField("Users", strings.Join(c.UserNames(), ", "))
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
