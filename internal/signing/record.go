package signing

import (
	"fmt"
	"strings"
	"time"
)

// recordDelimiter joins the canonical record fields. Field values are not
// escaped, so a value containing the delimiter mis-splits at verification
// time. The on-disk format is kept as-is for compatibility with
// already-issued documents; SplitRecord is the single place that parses it.
const recordDelimiter = " | "

// TimestampFormat is the human-readable form printed on the evidence page.
// It is built once at signing time and treated as an opaque display string
// afterwards; nothing reparses it as a time.
const TimestampFormat = "January 2, 2006 15:04 MST"

// RecordFields is the structured view of a canonical record.
type RecordFields struct {
	Institution string
	SignerName  string
	Role        string
	Timestamp   string
}

// BuildRecord assembles the canonical record ("cadena original"): the exact
// deterministic text that is digested and signed. Same inputs always yield
// byte-identical output.
func BuildRecord(institution, signerName, role, timestamp string) string {
	return strings.Join([]string{institution, signerName, role, timestamp}, recordDelimiter)
}

// FormatTimestamp renders a signing time in the on-page display format.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampFormat)
}

// SplitRecord recovers the four fields of a stored canonical record. The
// split is positional; any other arity means the record was not produced by
// BuildRecord (or a field value collided with the delimiter).
func SplitRecord(record string) (RecordFields, error) {
	parts := strings.Split(record, recordDelimiter)
	if len(parts) != 4 {
		return RecordFields{}, fmt.Errorf("canonical record has %d fields, want 4", len(parts))
	}
	return RecordFields{
		Institution: parts[0],
		SignerName:  parts[1],
		Role:        parts[2],
		Timestamp:   parts[3],
	}, nil
}
