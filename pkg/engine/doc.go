// Package engine wires the accounting allocator, key table, value DOM,
// parser/serializer, selector, mutation operators, persistence codec,
// statistics, and configuration registry into the top-level Engine type
// (spec §6.2, §6.3): the command surface a host dispatches into.
//
// Engine owns no host concerns of its own — key-space storage,
// keyspace-event delivery, and the reply wire format all come from
// pkg/host, injected at construction, exactly as a real Redis module
// would receive them from RedisModule_* callbacks instead of owning a
// socket itself.
package engine
