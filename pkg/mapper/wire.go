package mapper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Rendered is a field the REST API returns as {"rendered": ..., "raw": ...}.
// Raw is only present in the edit context.
type Rendered struct {
	Rendered string  `json:"rendered"`
	Raw      *string `json:"raw,omitempty"`
}

// UnmarshalJSON also accepts a bare string, which some remotes send.
func (r *Rendered) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Rendered{Rendered: s}
		return nil
	}

	type plain Rendered
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Rendered(p)
	return nil
}

// ID is a document id that tolerates being sent as a JSON string.
type ID int64

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*id = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", s, err)
		}
		*id = ID(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n)
	return nil
}

// Post is the wire shape of a document returned by a type collection.
//
// The distributor_* bundles are kept raw because peers serialize an empty
// map as [] and must not make the whole document undecodable.
type Post struct {
	ID          ID       `json:"id"`
	Date        string   `json:"date"`
	DateGMT     string   `json:"date_gmt"`
	Modified    string   `json:"modified"`
	ModifiedGMT string   `json:"modified_gmt"`
	GUID        Rendered `json:"guid"`
	Title       Rendered `json:"title"`
	Content     Rendered `json:"content"`
	Excerpt     Rendered `json:"excerpt"`
	Slug        string   `json:"slug"`
	Status      string   `json:"status"`
	Type        string   `json:"type"`
	Link        string   `json:"link"`
	Author      ID       `json:"author"`

	DistributorMeta             json.RawMessage `json:"distributor_meta,omitempty"`
	DistributorTerms            json.RawMessage `json:"distributor_terms,omitempty"`
	DistributorMedia            json.RawMessage `json:"distributor_media,omitempty"`
	DistributorOriginalSiteName string          `json:"distributor_original_site_name,omitempty"`
	DistributorOriginalSiteURL  string          `json:"distributor_original_site_url,omitempty"`
}

// decodeBundle decodes a distributor_* bundle into v, treating null, [] and
// undecodable values as absent.
func decodeBundle(raw json.RawMessage, v any) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("[]")) {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
