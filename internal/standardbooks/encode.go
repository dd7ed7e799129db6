package standardbooks

import "strconv"

// attributesKey is reserved for envelope metadata echoed back by the API and
// is never a real field; both encoders skip it.
const attributesKey = "@attributes"

// Row is one invoice/payment row keyed by field name.
type Row map[string]string

// Payload is the associative data for a single API operation: top-level
// scalar fields plus an ordered list of rows. Row position in the slice is
// the row index on the wire; the API has no row identifiers of its own.
type Payload struct {
	Fields map[string]string
	Rows   []Row
}

// AddFilterPrefix flattens a payload for a read/query operation. Scalars
// become "filter.<key>"; rows keep only the bare ".<index>.<field>" shape
// since filters carry no row prefix.
func AddFilterPrefix(p Payload) map[string]string {
	return encodePayload(p, "filter", "")
}

// AddSetFieldPrefix flattens a payload for a write operation. Scalars become
// "set_field.<key>", row fields "set_row_field.<index>.<field>".
func AddSetFieldPrefix(p Payload) map[string]string {
	return encodePayload(p, "set_field", "set_row_field")
}

// encodePayload produces the flat parameter map. There is no collision
// detection: if two entries flatten to the same key the last write wins,
// matching the API's own parameter handling.
func encodePayload(p Payload, prefix, rowPrefix string) map[string]string {
	out := make(map[string]string, len(p.Fields)+len(p.Rows)*6)

	for key, value := range p.Fields {
		if key == attributesKey {
			continue
		}
		out[prefix+"."+key] = value
	}

	for index, row := range p.Rows {
		for key, value := range row {
			if key == attributesKey {
				continue
			}
			out[rowPrefix+"."+strconv.Itoa(index)+"."+key] = value
		}
	}

	return out
}
