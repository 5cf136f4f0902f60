package engine

import (
	"sync"

	"github.com/jsondocdb/jsondoc/pkg/alloc"
	"github.com/jsondocdb/jsondoc/pkg/config"
	"github.com/jsondocdb/jsondoc/pkg/host"
	"github.com/jsondocdb/jsondoc/pkg/jsonerr"
	"github.com/jsondocdb/jsondoc/pkg/jsonio"
	"github.com/jsondocdb/jsondoc/pkg/keytable"
	"github.com/jsondocdb/jsondoc/pkg/mutate"
	"github.com/jsondocdb/jsondoc/pkg/selector"
	"github.com/jsondocdb/jsondoc/pkg/stats"
	"github.com/jsondocdb/jsondoc/pkg/value"
	"github.com/prometheus/client_golang/prometheus"
)

// Document wraps a root value with the two pieces of metadata the host
// tracks per key (spec §3.2): its recorded byte size and its current
// document-size-histogram bucket.
type Document struct {
	Root   *value.Value
	Size   int
	Bucket int
}

// Engine is the top-level wiring of the accounting allocator, key
// table, selector, mutation operators, and statistics into the command
// surface described in spec §6.2.
type Engine struct {
	mu   sync.RWMutex
	docs map[string]*Document

	kt     *keytable.Table
	global *alloc.Global
	cfg    *config.Config
	stats  *stats.Stats
	notify host.Notifier
}

// New builds an Engine against cfg's current limits and factors. notifier
// may be nil, in which case keyspace events are simply dropped.
func New(cfg *config.Config, notifier host.Notifier) (*Engine, error) {
	kt, err := keytable.New(16)
	if err != nil {
		return nil, err
	}
	if err := kt.SetFactors(cfg.KeyTableFactors()); err != nil {
		return nil, err
	}
	global := alloc.NewGlobal()
	return &Engine{
		docs:   make(map[string]*Document),
		kt:     kt,
		global: global,
		cfg:    cfg,
		stats:  stats.New(global, prometheus.NewRegistry()),
		notify: notifier,
	}, nil
}

func (e *Engine) publish(typ host.EventType, key, path string) {
	if e.notify == nil {
		return
	}
	e.notify.Publish(&host.Event{Type: typ, Key: key, Path: path})
}

func (e *Engine) mutator(sess *alloc.Session) *mutate.Mutator {
	m := mutate.New(e.kt, sess, e.cfg.Limits())
	m.MaxDocumentSize = e.cfg.MaxDocumentSize
	return m
}

// isRootPath reports whether pathText addresses the whole document,
// the only path SET may target on a key that doesn't exist yet (spec
// §6.2 "root-only for new keys").
func isRootPath(pathText string) bool {
	return pathText == "." || pathText == "$"
}

// pathExists reports whether pathText currently resolves to at least
// one location in doc (used to implement SET's NX/XX semantics).
func (e *Engine) pathExists(doc *Document, pathText string) (bool, error) {
	p, err := selector.Parse(pathText, e.cfg.Limits())
	if err != nil {
		return false, err
	}
	sess := alloc.NewSession(e.global)
	rs, err := selector.NewEvaluator(e.kt, sess, e.cfg.Limits()).Run(doc.Root, p, selector.ModeRead)
	if err != nil {
		return false, err
	}
	return len(rs.Matches) > 0, nil
}

// Set implements JSON.SET (spec §6.2). nx restricts the write to
// locations that do not yet exist; xx restricts it to locations that
// already do; both may not be set together.
func (e *Engine) Set(key, pathText, jsonText string, nx, xx bool) (int, error) {
	if nx && xx {
		return 0, jsonerr.New(jsonerr.KindNXXXMutuallyExclusive, "NX and XX are mutually exclusive")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, exists := e.docs[key]
	if !exists {
		if xx {
			return 0, nil
		}
		if !isRootPath(pathText) {
			return 0, jsonerr.New(jsonerr.KindPathNonExistent, "path must be root for a new key")
		}
		sess := alloc.NewSession(e.global)
		before := sess.Begin()
		parser := jsonio.NewParser(e.kt, sess, e.cfg.MaxParserRecursionDepth)
		root, depth, err := parser.Parse(jsonText)
		if err != nil {
			return 0, err
		}
		delta := sess.End(before)
		doc = &Document{Root: root, Size: int(delta)}
		doc.Bucket = e.stats.RecordDocumentCreated(int(delta))
		e.docs[key] = doc
		e.stats.RecordDepth(depth)
		e.stats.RecordOperation(stats.OpInsert, delta)
		e.publish(host.EventKeySet, key, pathText)
		return 1, nil
	}

	if nx || xx {
		has, err := e.pathExists(doc, pathText)
		if err != nil {
			return 0, err
		}
		if nx && has {
			return 0, nil
		}
		if xx && !has {
			return 0, nil
		}
	}

	sess := alloc.NewSession(e.global)
	before := sess.Begin()
	n, err := e.mutator(sess).Set(doc.Root, pathText, jsonText)
	delta := sess.End(before)
	if err != nil {
		return n, err
	}
	e.commitWrite(doc, delta, stats.OpUpdate)
	e.publish(host.EventPathSet, key, pathText)
	return n, nil
}

// commitWrite updates a document's recorded size/bucket and the
// matching operation histogram after a successful write (spec §4.6
// "each successful mutator updates statistics").
func (e *Engine) commitWrite(doc *Document, delta int64, op stats.OpKind) {
	doc.Size += int(delta)
	newBucket := stats.BucketOf(int64(doc.Size))
	doc.Bucket = e.stats.TransitionDocumentBucket(doc.Bucket, newBucket, doc.Size)
	e.stats.RecordOperation(op, delta)
}

// Get implements JSON.GET: fetches one path (a single serialized
// value) or several (a serialized object keyed by path text), per
// spec §6.2.
func (e *Engine) Get(key string, paths []string, opts jsonio.PrettyOptions) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	doc, ok := e.docs[key]
	if !ok {
		return "", jsonerr.New(jsonerr.KindKeyNotFound, "key %q not found", key)
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}

	ser := jsonio.NewSerializer()
	sess := alloc.NewSession(e.global)
	before := sess.Begin()
	ev := selector.NewEvaluator(e.kt, sess, e.cfg.Limits())

	render := func(pathText string) (string, error) {
		p, err := selector.Parse(pathText, e.cfg.Limits())
		if err != nil {
			return "", err
		}
		rs, err := ev.Run(doc.Root, p, selector.ModeRead)
		if err != nil {
			return "", err
		}
		if len(rs.Matches) == 0 {
			return "", jsonerr.New(jsonerr.KindPathNonExistent, "path %q does not exist", pathText)
		}
		if p.Dialect == selector.Legacy {
			return ser.Pretty(rs.Matches[0].Value, opts), nil
		}
		items := make([]*value.Value, len(rs.Matches))
		for i, m := range rs.Matches {
			items[i] = m.Value
		}
		arr := value.NewArray()
		for _, it := range items {
			arr.Array().Push(it, sess)
		}
		return ser.Pretty(arr, opts), nil
	}

	var out string
	if len(paths) == 1 {
		text, err := render(paths[0])
		if err != nil {
			return "", err
		}
		out = text
	} else {
		var b []byte
		b = append(b, '{')
		for i, pathText := range paths {
			if i > 0 {
				b = append(b, ',')
			}
			text, err := render(pathText)
			if err != nil {
				return "", err
			}
			b = append(b, '"')
			b = append(b, []byte(pathText)...)
			b = append(b, '"', ':')
			b = append(b, []byte(text)...)
		}
		b = append(b, '}')
		out = string(b)
	}
	e.stats.RecordOperation(stats.OpRead, sess.End(before))
	return out, nil
}

// MGet implements JSON.MGET: per-key fetch of a shared path (spec
// §6.2); missing keys report ok=false instead of an error.
func (e *Engine) MGet(keys []string, pathText string) ([]string, []bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]string, len(keys))
	ok := make([]bool, len(keys))
	ser := jsonio.NewSerializer()
	for i, key := range keys {
		doc, exists := e.docs[key]
		if !exists {
			continue
		}
		p, err := selector.Parse(pathText, e.cfg.Limits())
		if err != nil {
			return nil, nil, err
		}
		sess := alloc.NewSession(e.global)
		rs, err := selector.NewEvaluator(e.kt, sess, e.cfg.Limits()).Run(doc.Root, p, selector.ModeRead)
		if err != nil || len(rs.Matches) == 0 {
			continue
		}
		out[i] = ser.Fast(rs.Matches[0].Value)
		ok[i] = true
	}
	return out, ok, nil
}

// Del implements JSON.DEL: deletes matched locations, or the whole key
// when pathText addresses the root (spec §6.2).
func (e *Engine) Del(key, pathText string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, exists := e.docs[key]
	if !exists {
		return 0, nil
	}
	if isRootPath(pathText) {
		delete(e.docs, key)
		e.stats.RecordDocumentDeleted(doc.Bucket)
		e.publish(host.EventKeyDeleted, key, pathText)
		return 1, nil
	}

	sess := alloc.NewSession(e.global)
	before := sess.Begin()
	n, err := e.mutator(sess).Del(doc.Root, pathText)
	delta := sess.End(before)
	if err != nil {
		return n, err
	}
	e.commitWrite(doc, delta, stats.OpDelete)
	e.publish(host.EventPathDel, key, pathText)
	return n, nil
}

// Forget implements the FORGET alias for deleting an entire key.
func (e *Engine) Forget(key string) (int, error) {
	return e.Del(key, ".")
}

// withMutator runs fn against the document's root through a fresh
// session, committing the byte delta against the document and stats
// after fn returns, including when fn returns an error.
func (e *Engine) withMutator(key string, fn func(root *value.Value, m *mutate.Mutator) error) (*Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, exists := e.docs[key]
	if !exists {
		return nil, jsonerr.New(jsonerr.KindKeyNotFound, "key %q not found", key)
	}
	sess := alloc.NewSession(e.global)
	before := sess.Begin()
	err := fn(doc.Root, e.mutator(sess))
	delta := sess.End(before)
	e.commitWrite(doc, delta, stats.OpUpdate)
	return doc, err
}

// withRead runs fn against the document root under a read lock,
// accounting the observed byte traversal as a read-histogram sample.
func (e *Engine) withRead(key string, fn func(root *value.Value, m *mutate.Mutator) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	doc, exists := e.docs[key]
	if !exists {
		return jsonerr.New(jsonerr.KindKeyNotFound, "key %q not found", key)
	}
	sess := alloc.NewSession(e.global)
	before := sess.Begin()
	err := fn(doc.Root, e.mutator(sess))
	e.stats.RecordOperation(stats.OpRead, sess.End(before))
	return err
}
