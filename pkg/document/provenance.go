package document

import (
	"strconv"
	"time"
)

// Store keys of the provenance fields persisted on imported documents.
const (
	KeyOriginalPostID      = "dt_original_post_id"
	KeyOriginalSourceID    = "dt_original_source_id"
	KeySyndicateTime       = "dt_syndicate_time"
	KeyOriginalPostURL     = "dt_original_post_url"
	KeyOriginalSiteName    = "dt_original_site_name"
	KeyOriginalSiteURL     = "dt_original_site_url"
	KeyFullConnection      = "dt_full_connection"
	KeyUnlinked            = "dt_unlinked"
	KeyOriginalPostDeleted = "dt_original_post_deleted"
)

// Provenance records where an imported document came from.
type Provenance struct {
	OriginalPostID      int64
	OriginalSourceID    string
	SyndicateTime       time.Time
	OriginalPostURL     string
	OriginalSiteName    string
	OriginalSiteURL     string
	FullConnection      bool
	Unlinked            bool
	OriginalPostDeleted bool
}

// Values flattens p into store key/value pairs.
func (p Provenance) Values() map[string]string {
	return map[string]string{
		KeyOriginalPostID:      strconv.FormatInt(p.OriginalPostID, 10),
		KeyOriginalSourceID:    p.OriginalSourceID,
		KeySyndicateTime:       strconv.FormatInt(p.SyndicateTime.Unix(), 10),
		KeyOriginalPostURL:     p.OriginalPostURL,
		KeyOriginalSiteName:    p.OriginalSiteName,
		KeyOriginalSiteURL:     p.OriginalSiteURL,
		KeyFullConnection:      strconv.FormatBool(p.FullConnection),
		KeyUnlinked:            strconv.FormatBool(p.Unlinked),
		KeyOriginalPostDeleted: strconv.FormatBool(p.OriginalPostDeleted),
	}
}

// ProvenanceFromValues is the inverse of Values. Unparseable values are left
// at their zero value.
func ProvenanceFromValues(values map[string]string) Provenance {
	var p Provenance
	p.OriginalPostID, _ = strconv.ParseInt(values[KeyOriginalPostID], 10, 64)
	p.OriginalSourceID = values[KeyOriginalSourceID]
	if secs, err := strconv.ParseInt(values[KeySyndicateTime], 10, 64); err == nil {
		p.SyndicateTime = time.Unix(secs, 0)
	}
	p.OriginalPostURL = values[KeyOriginalPostURL]
	p.OriginalSiteName = values[KeyOriginalSiteName]
	p.OriginalSiteURL = values[KeyOriginalSiteURL]
	p.FullConnection, _ = strconv.ParseBool(values[KeyFullConnection])
	p.Unlinked, _ = strconv.ParseBool(values[KeyUnlinked])
	p.OriginalPostDeleted, _ = strconv.ParseBool(values[KeyOriginalPostDeleted])
	return p
}
