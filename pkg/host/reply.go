package host

import (
	"fmt"
	"io"
	"strconv"
)

// ReplyKind identifies one of the command protocol's reply primitives
// (spec §6.1: "simple string, bulk string, integer, array with
// postponed length, null").
type ReplyKind int

const (
	ReplySimpleString ReplyKind = iota
	ReplyBulkString
	ReplyInteger
	ReplyArray
	ReplyNull
)

// Reply is a single reply value, encodable to RESP2 wire format.
type Reply struct {
	Kind  ReplyKind
	Str   string
	Int   int64
	Items []*Reply
}

func SimpleString(s string) *Reply { return &Reply{Kind: ReplySimpleString, Str: s} }
func BulkString(s string) *Reply   { return &Reply{Kind: ReplyBulkString, Str: s} }
func Integer(n int64) *Reply       { return &Reply{Kind: ReplyInteger, Int: n} }
func Array(items ...*Reply) *Reply { return &Reply{Kind: ReplyArray, Items: items} }
func Null() *Reply                 { return &Reply{Kind: ReplyNull} }

// WriteRESP encodes r to w in RESP2 wire format. Arrays are written
// with their length computed up front: the host contract's "postponed
// length" (the real module API reserves the length slot and backfills
// it once every element is known) collapses to an ordinary upfront
// write here since Reply already holds every element in memory.
func WriteRESP(w io.Writer, r *Reply) error {
	switch r.Kind {
	case ReplySimpleString:
		_, err := fmt.Fprintf(w, "+%s\r\n", r.Str)
		return err
	case ReplyBulkString:
		_, err := fmt.Fprintf(w, "$%d\r\n%s\r\n", len(r.Str), r.Str)
		return err
	case ReplyInteger:
		_, err := fmt.Fprintf(w, ":%s\r\n", strconv.FormatInt(r.Int, 10))
		return err
	case ReplyNull:
		_, err := io.WriteString(w, "$-1\r\n")
		return err
	case ReplyArray:
		if _, err := fmt.Fprintf(w, "*%d\r\n", len(r.Items)); err != nil {
			return err
		}
		for _, item := range r.Items {
			if err := WriteRESP(w, item); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("host: unknown reply kind %d", r.Kind)
	}
}
