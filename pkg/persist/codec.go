package persist

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"strconv"

	"github.com/jsondocdb/jsondoc/pkg/alloc"
	"github.com/jsondocdb/jsondoc/pkg/jsonerr"
	"github.com/jsondocdb/jsondoc/pkg/jsonio"
	"github.com/jsondocdb/jsondoc/pkg/keytable"
	"github.com/jsondocdb/jsondoc/pkg/value"
)

// Version identifies a snapshot's on-disk encoding (spec §4.7).
type Version byte

const (
	// VersionLegacyBinary is the legacy typed binary layout: every
	// value is tagged and its fields written as fixed-width little
	// endian binary, with doubles stored as raw IEEE-754 bits.
	VersionLegacyBinary Version = 0
	// VersionWireJSON is the current encoding: the document is stored
	// as its wire-format JSON text (spec §4.4's fast serializer
	// output), so load is just a parse.
	VersionWireJSON Version = 3
)

// typeTag mirrors value.Kind for the legacy binary encoding; kept
// distinct from value.Kind so the wire format is stable even if the
// in-memory Kind enum's numbering ever changes.
type typeTag byte

const (
	tagNull typeTag = iota
	tagFalse
	tagTrue
	tagInt
	tagUint
	tagDouble
	tagString
	tagArray
	tagObject
)

// Codec encodes/decodes document snapshots, interning object member
// names through kt and charging every allocation to sess (spec §4.1,
// §4.2, §4.7).
type Codec struct {
	kt   *keytable.Table
	sess *alloc.Session

	// EnforceVersionCheck rejects snapshot bytes whose version byte is
	// neither VersionLegacyBinary nor VersionWireJSON when true (spec
	// §6.4 enforce_rdb_version_check); when false, Load decodes such
	// bytes as the VersionWireJSON encoding.
	EnforceVersionCheck bool
}

func NewCodec(kt *keytable.Table, sess *alloc.Session) *Codec {
	return &Codec{kt: kt, sess: sess, EnforceVersionCheck: true}
}

// Save writes root to w using the current (version-3) encoding.
func (c *Codec) Save(w io.Writer, root *value.Value) error {
	bw := bufio.NewWriter(w)
	if err := bw.WriteByte(byte(VersionWireJSON)); err != nil {
		return err
	}
	text := jsonio.NewSerializer().Fast(root)
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(text)))
	if _, err := bw.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := bw.WriteString(text); err != nil {
		return err
	}
	return bw.Flush()
}

// Load reads a snapshot from r, dispatching on its version byte (spec
// §4.7: "the codec must remain able to load snapshots written by the
// legacy encoding").
func (c *Codec) Load(r io.Reader) (*value.Value, error) {
	br := bufio.NewReader(r)
	vb, err := br.ReadByte()
	if err != nil {
		return nil, jsonerr.New(jsonerr.KindInvalidRDBFormat, "cannot read snapshot version: %v", err)
	}
	v := Version(vb)
	if c.EnforceVersionCheck && v != VersionLegacyBinary && v != VersionWireJSON {
		return nil, jsonerr.New(jsonerr.KindInvalidRDBFormat, "unrecognized snapshot version %d", vb)
	}
	switch v {
	case VersionWireJSON:
		return c.loadWireJSON(br)
	case VersionLegacyBinary:
		return c.loadLegacyBinary(br)
	default:
		if !c.EnforceVersionCheck {
			return c.loadWireJSON(br)
		}
		return nil, jsonerr.New(jsonerr.KindInvalidRDBFormat, "unrecognized snapshot version %d", vb)
	}
}

func (c *Codec) loadWireJSON(r *bufio.Reader) (*value.Value, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, jsonerr.New(jsonerr.KindInvalidRDBFormat, "truncated snapshot length: %v", err)
	}
	n := binary.LittleEndian.Uint64(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, jsonerr.New(jsonerr.KindInvalidRDBFormat, "truncated snapshot body: %v", err)
	}
	p := jsonio.NewParser(c.kt, c.sess, jsonio.DefaultMaxRecursionDepth)
	v, _, err := p.Parse(string(buf))
	if err != nil {
		return nil, jsonerr.New(jsonerr.KindInvalidRDBFormat, "corrupt wire-JSON snapshot: %v", err)
	}
	return v, nil
}

// loadLegacyBinary decodes the version-0 typed binary layout. Doubles
// are stored as raw IEEE-754 bits and re-encoded to the shortest
// round-tripping decimal text on load (spec §4.7), since the legacy
// format never preserved the original parsed text the way version-3
// documents do.
func (c *Codec) loadLegacyBinary(r *bufio.Reader) (*value.Value, error) {
	return c.readLegacyValue(r)
}

func (c *Codec) readLegacyValue(r *bufio.Reader) (*value.Value, error) {
	tb, err := r.ReadByte()
	if err != nil {
		return nil, jsonerr.New(jsonerr.KindInvalidRDBFormat, "truncated value tag: %v", err)
	}
	switch typeTag(tb) {
	case tagNull:
		return value.Null(), nil
	case tagFalse:
		return value.Bool(false), nil
	case tagTrue:
		return value.Bool(true), nil
	case tagInt:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, jsonerr.New(jsonerr.KindInvalidRDBFormat, "truncated int: %v", err)
		}
		return value.Int(int64(binary.LittleEndian.Uint64(b[:]))), nil
	case tagUint:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, jsonerr.New(jsonerr.KindInvalidRDBFormat, "truncated uint: %v", err)
		}
		return value.Uint(binary.LittleEndian.Uint64(b[:])), nil
	case tagDouble:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, jsonerr.New(jsonerr.KindInvalidRDBFormat, "truncated double: %v", err)
		}
		bits := binary.LittleEndian.Uint64(b[:])
		f := math.Float64frombits(bits)
		return value.Double(f, strconv.FormatFloat(f, 'g', -1, 64)), nil
	case tagString:
		s, err := c.readLegacyString(r)
		if err != nil {
			return nil, err
		}
		return value.String(s, false), nil
	case tagArray:
		n, err := readLegacyLen(r)
		if err != nil {
			return nil, err
		}
		arr := value.NewArray()
		for i := uint64(0); i < n; i++ {
			elem, err := c.readLegacyValue(r)
			if err != nil {
				return nil, err
			}
			arr.Array().Push(elem, c.sess)
		}
		return arr, nil
	case tagObject:
		n, err := readLegacyLen(r)
		if err != nil {
			return nil, err
		}
		obj := value.NewObject()
		for i := uint64(0); i < n; i++ {
			name, err := c.readLegacyString(r)
			if err != nil {
				return nil, err
			}
			elem, err := c.readLegacyValue(r)
			if err != nil {
				return nil, err
			}
			h := c.kt.MakeHandle([]byte(name), false)
			obj.Object().Add(h, elem, c.kt, c.sess)
		}
		return obj, nil
	}
	return nil, jsonerr.New(jsonerr.KindInvalidRDBFormat, "unknown legacy type tag %d", tb)
}

func (c *Codec) readLegacyString(r *bufio.Reader) (string, error) {
	n, err := readLegacyLen(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", jsonerr.New(jsonerr.KindInvalidRDBFormat, "truncated string: %v", err)
	}
	return string(buf), nil
}

func readLegacyLen(r *bufio.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, jsonerr.New(jsonerr.KindInvalidRDBFormat, "truncated length: %v", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
