/*
Package log provides structured logging for the document engine using
zerolog.

The package wraps zerolog to give JSON-structured logging with
component-scoped child loggers, configurable severity levels, and
helpers for the contexts the engine logs against most: a document key,
a selector path, or a dispatched command name.

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Thread-safe for concurrent use by command dispatch

Log Levels:
  - Debug: selector/parser tracing, defrag cycle detail
  - Info: command dispatch summaries, snapshot save/load
  - Warn: approaching a configured limit (size, depth, query length)
  - Error: operation failures surfaced to the host
  - Fatal: invariant violations (§7 "Fatal conditions") before abort

Context Loggers:
  - WithComponent: scope logs to a package ("selector", "persist", ...)
  - WithKey: scope logs to a document key
  - WithPath: scope logs to a selector path string
  - WithCommand: scope logs to a dispatched command name

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithCommand("SET")
	logger.Info().Str("key", key).Str("path", path).Msg("document created")

	if err != nil {
		log.WithKey(key).Error().Err(err).Msg("mutation failed")
	}

# Integration Points

This package is used by:

  - pkg/engine: command dispatch logs unknown commands and fatal
    invariant panics (before re-raising them); DEBUG KEYTABLE-CORRUPT
    logs a warning
  - cmd/jsondoc-bench: CLI-level logging configuration
*/
package log
