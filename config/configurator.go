// Package config reads library configuration from the environment via Viper,
// converting raw string values into typed ones with documented defaults.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Well-known configuration keys.
const (
	// KeyBootstrapServers is a comma-separated list of Kafka brokers.
	KeyBootstrapServers = "BOOTSTRAP_SERVERS"
	// KeySourceTopic names the topic input actions consume by default.
	KeySourceTopic = "SOURCE_TOPIC"
	// KeyTargetTopic names the topic output actions produce to by default.
	KeyTargetTopic = "TARGET_TOPIC"
	// KeyAutoEnableDLQ toggles automatic dead letter queue sinks for
	// actions with a Kafka source.
	KeyAutoEnableDLQ = "AUTO_ENABLE_DLQ"
	// KeyReportingBatchSize overrides the progress reporting batch size.
	KeyReportingBatchSize = "REPORTING_BATCH_SIZE"
)

// Error reports a configuration key whose value is missing or unusable.
type Error struct {
	Key    string
	Reason string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("configuration key %s: %s", e.Key, e.Reason)
}

// Configurator resolves configuration keys against the environment. Keys are
// looked up verbatim (e.g. TARGET_TOPIC reads the TARGET_TOPIC environment
// variable); values set programmatically with Set take precedence, which is
// how tests supply configuration.
type Configurator struct {
	v *viper.Viper
}

// New builds a Configurator bound to the process environment.
func New() *Configurator {
	v := viper.New()
	v.AutomaticEnv()
	return &Configurator{v: v}
}

// Set overrides a key, taking precedence over the environment.
func (c *Configurator) Set(key, value string) {
	c.v.Set(key, value)
}

// Get returns the string value for key, or def when the key is unset.
func (c *Configurator) Get(key, def string) string {
	val := c.v.GetString(key)
	if val == "" {
		return def
	}
	return val
}

// GetRequired returns the string value for key, failing when it is unset.
// The description is included in the error to help operators.
func (c *Configurator) GetRequired(key, description string) (string, error) {
	val := c.v.GetString(key)
	if val == "" {
		reason := "required but not set"
		if description != "" {
			reason += ". " + description
		}
		return "", &Error{Key: key, Reason: reason}
	}
	return val, nil
}

// GetInt returns the integer value for key, or def when unset. A value that
// does not parse as an integer is an error rather than a silent default.
func (c *Configurator) GetInt(key string, def int) (int, error) {
	raw := c.v.GetString(key)
	if raw == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &Error{Key: key, Reason: fmt.Sprintf("value %q is not an integer", raw)}
	}
	return val, nil
}

// GetBool returns the boolean value for key, or def when unset. Only "true"
// and "false" (any case) are accepted.
func (c *Configurator) GetBool(key string, def bool) (bool, error) {
	raw := c.v.GetString(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(raw) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, &Error{Key: key, Reason: fmt.Sprintf("value %q is not 'true' or 'false'", raw)}
	}
}

// GetDuration returns the duration value for key, or def when unset. Values
// use Go duration syntax, e.g. "15s".
func (c *Configurator) GetDuration(key string, def time.Duration) (time.Duration, error) {
	raw := c.v.GetString(key)
	if raw == "" {
		return def, nil
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &Error{Key: key, Reason: fmt.Sprintf("value %q is not a duration", raw)}
	}
	return val, nil
}

// Brokers returns the bootstrap server list from KeyBootstrapServers,
// splitting on commas and trimming whitespace.
func (c *Configurator) Brokers() ([]string, error) {
	raw, err := c.GetRequired(KeyBootstrapServers,
		"Provide a comma-separated list of Kafka bootstrap servers.")
	if err != nil {
		return nil, err
	}
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	if len(brokers) == 0 {
		return nil, &Error{Key: KeyBootstrapServers, Reason: "no usable broker addresses"}
	}
	return brokers, nil
}
