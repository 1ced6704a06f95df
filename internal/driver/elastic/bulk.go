package elastic

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/addls/scout/pkg/search"
)

// BulkHeader is the action line of a bulk entry.
type BulkHeader struct {
	ID    string `json:"_id"`
	Index string `json:"_index"`
	Type  string `json:"_type,omitempty"`
}

// BulkAction wraps a header under its action name.
type BulkAction struct {
	Update *BulkHeader `json:"update,omitempty"`
	Delete *BulkHeader `json:"delete,omitempty"`
}

// BulkUpsert is the source line following an update header.
type BulkUpsert struct {
	Doc         map[string]any `json:"doc"`
	DocAsUpsert bool           `json:"doc_as_upsert"`
}

// BulkBody is an ordered list of bulk lines, each a BulkAction or a
// BulkUpsert.
type BulkBody []any

// NDJSON encodes the body as newline-delimited JSON, one line per entry,
// ending with a newline.
func (b BulkBody) NDJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, entry := range b {
		if err := enc.Encode(entry); err != nil {
			return nil, fmt.Errorf("encode bulk entry %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// BulkBuilder builds bulk bodies against one index.
type BulkBuilder struct {
	Index string

	// IncludeType writes each record's SearchableAs as _type. Clusters
	// from 7.0 on reject it.
	IncludeType bool
}

func (b BulkBuilder) header(r search.Record) *BulkHeader {
	h := &BulkHeader{ID: r.Key(), Index: b.Index}
	if b.IncludeType {
		h.Type = r.SearchableAs()
	}
	return h
}

// BuildUpdateRequest returns an upsert header and document pair per
// record, in input order.
func (b BulkBuilder) BuildUpdateRequest(records []search.Record) BulkBody {
	body := make(BulkBody, 0, 2*len(records))
	for _, r := range records {
		body = append(body,
			BulkAction{Update: b.header(r)},
			BulkUpsert{Doc: r.SearchableFields(), DocAsUpsert: true},
		)
	}
	return body
}

// BuildDeleteRequest returns one delete header per record, in input order.
func (b BulkBuilder) BuildDeleteRequest(records []search.Record) BulkBody {
	body := make(BulkBody, 0, len(records))
	for _, r := range records {
		body = append(body, BulkAction{Delete: b.header(r)})
	}
	return body
}
