// Package host defines the collaborator contracts the engine expects
// from its embedding host (spec §6.1): a key-space the engine reads
// and writes document bytes through, keyspace-event notification, a
// configuration-parameter registrar (see pkg/config.Registrar), and
// the reply primitives of the command protocol.
//
// In a real Redis/Valkey module these contracts are satisfied by the
// module API (RedisModule_OpenKey, RedisModule_NotifyKeyspaceEvent,
// RedisModule_ReplyWith*); here they are satisfied by
// pkg/persist.KeyspaceStore (a bbolt-backed key-space) and the RESP2
// encoder below, so the standalone harness in cmd/jsondoc-bench can
// drive the engine the same way a real host would.
package host
