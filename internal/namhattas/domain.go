package namhattas

import "time"

// Status values for a namhatta center.
const (
	StatusPendingApproval = "PENDING_APPROVAL"
	StatusApproved        = "APPROVED"
	StatusRejected        = "REJECTED"
)

// Namhatta is a local center. Registration numbers are assigned at
// approval time and unique across the platform.
type Namhatta struct {
	ID             int64   `json:"id"`
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Status         string  `json:"status"`
	RegistrationNo *string `json:"registrationNo,omitempty"`
	DistrictCode   *string `json:"districtCode,omitempty"`
	SecretaryID    *int64  `json:"secretaryId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListFilter narrows and pages a namhatta listing. Districts is the
// caller's scope, injected by the handler.
type ListFilter struct {
	Search     string
	Status     string
	Restricted bool
	Districts  []string
	Page       int
	PageSize   int
}

// Page is one page of namhattas plus the unpaged total.
type Page struct {
	Items    []Namhatta `json:"items"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"pageSize"`
}
