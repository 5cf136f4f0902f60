package engine

import (
	"bytes"

	"github.com/jsondocdb/jsondoc/pkg/alloc"
	"github.com/jsondocdb/jsondoc/pkg/host"
	"github.com/jsondocdb/jsondoc/pkg/persist"
	"github.com/jsondocdb/jsondoc/pkg/stats"
)

// SaveKey encodes key's document through the codec and writes the
// resulting snapshot bytes into ks (spec §4.7, §6.4 "every key's
// document is saved independently").
func (e *Engine) SaveKey(ks host.KeySpace, key string) error {
	e.mu.RLock()
	doc, exists := e.docs[key]
	e.mu.RUnlock()
	if !exists {
		return nil
	}

	sess := alloc.NewSession(e.global)
	codec := persist.NewCodec(e.kt, sess)
	var buf bytes.Buffer
	if err := codec.Save(&buf, doc.Root); err != nil {
		return err
	}
	return ks.Put(key, buf.Bytes())
}

// SaveAll snapshots every key currently held by the engine into ks.
func (e *Engine) SaveAll(ks host.KeySpace) error {
	e.mu.RLock()
	keys := make([]string, 0, len(e.docs))
	for k := range e.docs {
		keys = append(keys, k)
	}
	e.mu.RUnlock()

	for _, k := range keys {
		if err := e.SaveKey(ks, k); err != nil {
			return err
		}
	}
	return nil
}

// LoadKey reads key's snapshot bytes from ks and installs the decoded
// document under key, replacing any existing value (spec §4.7 "load
// populates the key space before command traffic begins").
func (e *Engine) LoadKey(ks host.KeySpace, key string) (bool, error) {
	data, ok, err := ks.Get(key)
	if err != nil || !ok {
		return false, err
	}

	sess := alloc.NewSession(e.global)
	before := sess.Begin()
	codec := persist.NewCodec(e.kt, sess)
	root, err := codec.Load(bytes.NewReader(data))
	if err != nil {
		return false, err
	}
	delta := sess.End(before)

	e.mu.Lock()
	doc := &Document{Root: root, Size: int(delta)}
	doc.Bucket = e.stats.RecordDocumentCreated(int(delta))
	e.docs[key] = doc
	e.mu.Unlock()

	e.stats.RecordOperation(stats.OpInsert, delta)
	return true, nil
}

// LoadAll loads every key present in ks into the engine, replacing any
// loaded document with the same key; keys not present in ks stay loaded.
func (e *Engine) LoadAll(ks host.KeySpace) error {
	keys, err := ks.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := e.LoadKey(ks, key); err != nil {
			return err
		}
	}
	return nil
}
