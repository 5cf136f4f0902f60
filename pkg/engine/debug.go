package engine

import (
	"fmt"
	"strings"

	"github.com/jsondocdb/jsondoc/pkg/host"
	"github.com/jsondocdb/jsondoc/pkg/jsonerr"
	"github.com/jsondocdb/jsondoc/pkg/log"
	"github.com/jsondocdb/jsondoc/pkg/mutate"
	"github.com/jsondocdb/jsondoc/pkg/stats"
	"github.com/jsondocdb/jsondoc/pkg/value"
)

// dispatchDebug implements the DEBUG subcommand family (spec §6.3):
// MEMORY/FIELDS/DEPTH report per-document figures, HELP lists the
// subcommands, and the remaining subcommands are key-table diagnostics
// with no production command-path equivalent.
func (e *Engine) dispatchDebug(args []string) (*host.Reply, error) {
	if err := requireArgs(args, 1); err != nil {
		return nil, err
	}
	switch strings.ToUpper(args[0]) {
	case "MEMORY":
		return e.debugMemory(args[1:])
	case "FIELDS":
		return e.debugIntPerMatch(args[1:], func(m *mutate.Mutator, root *value.Value, path string) ([]int, error) {
			return m.NumFields(root, path)
		})
	case "DEPTH":
		return e.debugIntPerMatch(args[1:], func(m *mutate.Mutator, root *value.Value, path string) ([]int, error) {
			return m.Depth(root, path)
		})
	case "HELP":
		return host.Array(
			host.SimpleString("MEMORY [key [path]] -- document/global byte totals and histograms"),
			host.SimpleString("FIELDS key [path] -- field count at path"),
			host.SimpleString("DEPTH key [path] -- nesting depth at path"),
			host.SimpleString("MAX-DEPTH-KEY -- key holding the document with the deepest nesting seen"),
			host.SimpleString("MAX-SIZE-KEY -- key holding the largest document seen"),
			host.SimpleString("KEYTABLE-CHECK -- validate key-table hash consistency"),
			host.SimpleString("KEYTABLE-CORRUPT -- corrupt one key-table entry (diagnostics only)"),
			host.SimpleString("KEYTABLE-DISTRIBUTION -- probe-chain run-length histogram"),
		), nil
	case "MAX-DEPTH-KEY", "MAX-SIZE-KEY":
		return e.debugExtremeKey(strings.ToUpper(args[0]))
	case "KEYTABLE-CHECK":
		if err := e.kt.Check(); err != nil {
			return nil, jsonerr.New(jsonerr.KindInvalidRDBFormat, "key table check failed: %v", err)
		}
		return host.SimpleString("OK"), nil
	case "KEYTABLE-CORRUPT":
		if e.kt.Corrupt() {
			log.Warn("key table deliberately corrupted via DEBUG KEYTABLE-CORRUPT")
			return host.SimpleString("OK"), nil
		}
		return host.SimpleString("EMPTY"), nil
	case "KEYTABLE-DISTRIBUTION":
		runs := e.kt.LongStats(16)
		items := make([]*host.Reply, len(runs))
		for i, r := range runs {
			items[i] = host.SimpleString(fmt.Sprintf("%d:%d", r.Length, r.Count))
		}
		return host.Array(items...), nil
	default:
		return nil, jsonerr.New(jsonerr.KindUnknownSubcommand, "unknown DEBUG subcommand %q", args[0])
	}
}

func (e *Engine) debugIntPerMatch(args []string, fn func(*mutate.Mutator, *value.Value, string) ([]int, error)) (*host.Reply, error) {
	if err := requireArgs(args, 1); err != nil {
		return nil, err
	}
	key := args[0]
	path := "."
	if len(args) > 1 {
		path = args[1]
	}
	var out []int
	err := e.withRead(key, func(root *value.Value, m *mutate.Mutator) error {
		var opErr error
		out, opErr = fn(m, root, path)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return intsReply(out), nil
}

// debugMemory reports global statistics when called with no key, or the
// single document's recorded size and bucket when called with one.
func (e *Engine) debugMemory(args []string) (*host.Reply, error) {
	if len(args) == 0 {
		snap := e.stats.Snapshot()
		return host.Array(
			host.SimpleString(fmt.Sprintf("bytes_total:%d", snap.ByteTotal)),
			host.SimpleString(fmt.Sprintf("documents:%d", snap.DocumentCount)),
			host.SimpleString(fmt.Sprintf("max_depth_seen:%d", snap.MaxDepthSeen)),
			host.SimpleString(fmt.Sprintf("max_size_seen:%d", snap.MaxSizeSeen)),
			host.SimpleString(fmt.Sprintf("defrag_count:%d", snap.DefragCount)),
			host.SimpleString(fmt.Sprintf("defrag_bytes:%d", snap.DefragBytes)),
			host.SimpleString(fmt.Sprintf("doc_histogram:%v", snap.DocHistogram)),
			host.SimpleString(fmt.Sprintf("read_histogram:%v", snap.ReadHistogram)),
			host.SimpleString(fmt.Sprintf("insert_histogram:%v", snap.InsertHisto)),
			host.SimpleString(fmt.Sprintf("update_histogram:%v", snap.UpdateHisto)),
			host.SimpleString(fmt.Sprintf("delete_histogram:%v", snap.DeleteHisto)),
		), nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	doc, exists := e.docs[args[0]]
	if !exists {
		return nil, jsonerr.New(jsonerr.KindKeyNotFound, "key %q not found", args[0])
	}
	return host.Array(
		host.SimpleString(fmt.Sprintf("size_bytes:%d", doc.Size)),
		host.SimpleString(fmt.Sprintf("bucket:%s", stats.BucketLabel(doc.Bucket))),
	), nil
}

// debugExtremeKey finds the key holding the document with the deepest
// nesting (Depth) or the largest recorded size, a diagnostic with no production-path
// equivalent (spec §6.3 "debug introspection of key-table and size
// tracking").
func (e *Engine) debugExtremeKey(which string) (*host.Reply, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var bestKey string
	best := -1
	for key, doc := range e.docs {
		var metric int
		switch which {
		case "MAX-DEPTH-KEY":
			metric = doc.Root.Depth()
		default:
			metric = doc.Size
		}
		if metric > best {
			best = metric
			bestKey = key
		}
	}
	if bestKey == "" {
		return host.Null(), nil
	}
	return host.BulkString(bestKey), nil
}
