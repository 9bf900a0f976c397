package devotees

import "time"

// Devotee is a member record. LeadershipRole and ReportingTo are managed by
// the hierarchy subsystem; this package only reads them.
type Devotee struct {
	ID             int64   `json:"id"`
	LegalName      string  `json:"legalName"`
	Name           string  `json:"name,omitempty"`
	Email          string  `json:"email,omitempty"`
	Phone          string  `json:"phone,omitempty"`
	LeadershipRole *string `json:"leadershipRole,omitempty"`
	ReportingTo    *int64  `json:"reportingToDevoteeId,omitempty"`
	NamhattaID     *int64  `json:"namhattaId,omitempty"`
	DistrictCode   *string `json:"districtCode,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListFilter narrows and pages a devotee listing. Districts is the
// caller's scope, injected by the handler, never by the client.
type ListFilter struct {
	Search       string
	DistrictCode string
	NamhattaID   *int64
	Restricted   bool
	Districts    []string
	Page         int
	PageSize     int
}

// Page is one page of devotees plus the unpaged total.
type Page struct {
	Items    []Devotee `json:"items"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}
