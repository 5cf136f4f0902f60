// Package config implements the typed configuration parameter
// registry (spec §6.4): get/set/validate access to the engine's
// resource limits and structural factors, with an optional YAML
// loader for the standalone harness.
package config

import (
	"fmt"
	"sync"

	"github.com/jsondocdb/jsondoc/pkg/keytable"
	"github.com/jsondocdb/jsondoc/pkg/selector"
	"gopkg.in/yaml.v3"
)

// Config holds the engine's resource limits, key-table factors and
// flags. It has no hash-table factor parameters and no key-table shard
// count parameter. Zero value is not valid; use New for defaults.
type Config struct {
	mu sync.RWMutex

	MaxDocumentSize        int     `yaml:"max_document_size"`
	DefragThreshold        int     `yaml:"defrag_threshold"`
	MaxPathLimit            int     `yaml:"max_path_limit"`
	MaxParserRecursionDepth  int     `yaml:"max_parser_recursion_depth"`
	MaxRecursiveDescentTokens int    `yaml:"max_recursive_descent_tokens"`
	MaxQueryStringSize       int     `yaml:"max_query_string_size"`

	KeyTableMinLoad float64 `yaml:"key_table_min_load"`
	KeyTableMaxLoad float64 `yaml:"key_table_max_load"`
	KeyTableGrow    float64 `yaml:"key_table_grow"`
	KeyTableShrink  float64 `yaml:"key_table_shrink"`
	KeyTableMinSize int     `yaml:"key_table_min_size"`

	EnableMemoryTraps    bool `yaml:"enable_memory_traps"`
	EnforceRDBVersionCheck bool `yaml:"enforce_rdb_version_check"`
}

// New returns a Config populated with spec §6.4's defaults.
func New() *Config {
	return &Config{
		MaxDocumentSize:           0,
		DefragThreshold:           64 * 1024 * 1024,
		MaxPathLimit:              selector.DefaultLimits.MaxPathLimit,
		MaxParserRecursionDepth:   selector.DefaultLimits.MaxParserRecursionDepth,
		MaxRecursiveDescentTokens: selector.DefaultLimits.MaxRecursiveDescentTokens,
		MaxQueryStringSize:        selector.DefaultLimits.MaxQueryStringSize,

		KeyTableMinLoad: keytable.DefaultFactors.MinLoad,
		KeyTableMaxLoad: keytable.DefaultFactors.MaxLoad,
		KeyTableGrow:    keytable.DefaultFactors.Grow,
		KeyTableShrink:  keytable.DefaultFactors.Shrink,
		KeyTableMinSize: keytable.DefaultFactors.MinSize,

		EnableMemoryTraps:      false,
		EnforceRDBVersionCheck: false,
	}
}

// LoadYAML reads parameter overrides from a YAML document keyed by the
// fields' yaml tags. The standalone harness does not call it.
func LoadYAML(c *Config, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return yaml.Unmarshal(data, c)
}

// Limits projects the selector-relevant fields into a selector.Limits
// value for handing to the evaluator.
func (c *Config) Limits() selector.Limits {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return selector.Limits{
		MaxParserRecursionDepth:   c.MaxParserRecursionDepth,
		MaxRecursiveDescentTokens: c.MaxRecursiveDescentTokens,
		MaxQueryStringSize:        c.MaxQueryStringSize,
		MaxPathLimit:              c.MaxPathLimit,
	}
}

// KeyTableFactors projects the key-table-relevant fields.
func (c *Config) KeyTableFactors() keytable.Factors {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return keytable.Factors{
		MinLoad: c.KeyTableMinLoad,
		MaxLoad: c.KeyTableMaxLoad,
		Grow:    c.KeyTableGrow,
		Shrink:  c.KeyTableShrink,
		MinSize: c.KeyTableMinSize,
	}
}

// Registrar is the host contract a command-line or module host uses
// to expose CONFIG GET/SET over this registry (spec §6.1, §6.4).
type Registrar interface {
	Get(name string) (string, bool)
	Set(name, value string) error
	Names() []string
}

// Get implements Registrar with a switch over the parameter names.
func (c *Config) Get(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch name {
	case "max_document_size":
		return fmt.Sprint(c.MaxDocumentSize), true
	case "defrag_threshold":
		return fmt.Sprint(c.DefragThreshold), true
	case "max_path_limit":
		return fmt.Sprint(c.MaxPathLimit), true
	case "max_parser_recursion_depth":
		return fmt.Sprint(c.MaxParserRecursionDepth), true
	case "max_recursive_descent_tokens":
		return fmt.Sprint(c.MaxRecursiveDescentTokens), true
	case "max_query_string_size":
		return fmt.Sprint(c.MaxQueryStringSize), true
	case "enable_memory_traps":
		return fmt.Sprint(c.EnableMemoryTraps), true
	case "enforce_rdb_version_check":
		return fmt.Sprint(c.EnforceRDBVersionCheck), true
	}
	return "", false
}

// Set implements Registrar for the mutable integer/bool parameters.
// Structural factors (key-table load/grow/shrink) are not settable
// here; they go through KeyTableFactors + keytable.Table.SetFactors,
// which validates their ranges.
func (c *Config) Set(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch name {
	case "max_document_size":
		return setInt(&c.MaxDocumentSize, value)
	case "defrag_threshold":
		return setInt(&c.DefragThreshold, value)
	case "max_path_limit":
		return setInt(&c.MaxPathLimit, value)
	case "max_parser_recursion_depth":
		return setInt(&c.MaxParserRecursionDepth, value)
	case "max_recursive_descent_tokens":
		return setInt(&c.MaxRecursiveDescentTokens, value)
	case "max_query_string_size":
		return setInt(&c.MaxQueryStringSize, value)
	case "enable_memory_traps":
		return setBool(&c.EnableMemoryTraps, value)
	case "enforce_rdb_version_check":
		return setBool(&c.EnforceRDBVersionCheck, value)
	}
	return fmt.Errorf("unknown or read-only config parameter %q", name)
}

// Names lists every parameter CONFIG GET/SET recognises.
func (c *Config) Names() []string {
	return []string{
		"max_document_size", "defrag_threshold", "max_path_limit",
		"max_parser_recursion_depth", "max_recursive_descent_tokens",
		"max_query_string_size", "enable_memory_traps",
		"enforce_rdb_version_check",
	}
}

func setInt(dst *int, value string) error {
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return fmt.Errorf("invalid integer %q", value)
	}
	if n < 0 {
		return fmt.Errorf("value must be non-negative, got %d", n)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, value string) error {
	switch value {
	case "true", "1", "yes":
		*dst = true
	case "false", "0", "no":
		*dst = false
	default:
		return fmt.Errorf("invalid boolean %q", value)
	}
	return nil
}
