package memstore

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"

	"github.com/joeholl/unitable"
)

// Key layout. Badger iterates keys in lexicographic order, which is what
// lets an index prefix scan emulate a secondary index range query:
//
//	p <sep> <pk>                                  -> record (primary)
//	i <sep> <index> <sep> <pkenc> <sep> <skenc> <sep> <pk> -> record (index entry)
//
// The separator is a NUL byte so data bytes never sort below it.
const sep = "\x00"

func primaryKey(pk string) []byte {
	return []byte("p" + sep + pk)
}

const primaryPrefix = "p" + sep

func indexPrefix(index, pkenc string) string {
	return "i" + sep + index + sep + pkenc + sep
}

func indexEntryKey(index, pkenc, skenc, pk string) []byte {
	return []byte(indexPrefix(index, pkenc) + skenc + sep + pk)
}

// sortValueOf splits an index entry key into its encoded sort value.
func sortValueOf(key []byte, prefix string) string {
	rest := strings.TrimPrefix(string(key), prefix)
	if i := strings.Index(rest, sep); i >= 0 {
		return rest[:i]
	}
	return rest
}

// numericOffset shifts values into non-negative territory before padding so
// that lexicographic order of encoded values matches numeric order.
const numericOffset = float64(1 << 40)

// encodeNumeric produces a fixed-width decimal encoding whose string order
// matches numeric order for values in (-2^40, 2^40).
func encodeNumeric(v float64) string {
	return fmt.Sprintf("%020.6f", v+numericOffset)
}

// encodeKeyValue encodes an attribute value for use inside an index key.
func encodeKeyValue(rec unitable.Record, attr string, kind unitable.KeyType) string {
	if kind == unitable.KeyNumber {
		return encodeNumeric(rec.Float(attr))
	}
	return rec.String(attr)
}

// encodeQueryValue encodes a caller-supplied bound for comparison against
// encoded index keys.
func encodeQueryValue(v any, kind unitable.KeyType) string {
	if kind == unitable.KeyNumber {
		return encodeNumeric(unitable.Record{"v": v}.Float("v"))
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// between reports whether v lies in [lo, hi].
func between[T constraints.Ordered](v, lo, hi T) bool {
	return v >= lo && v <= hi
}
