package models

// User is one tenant registration: a login identity bound to a company
// whose name doubles as the storage namespace for that tenant's tables.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	PassHash    []byte `json:"-"`
	Company     string `json:"company"`
	WorkEmail   string `json:"work_email"`
	EmailAppKey string `json:"-"`
}

// MailboxEnabled reports whether ingestion credentials were verified and
// stored for this tenant.
func (u *User) MailboxEnabled() bool {
	return u.EmailAppKey != ""
}

// Job is a posting in a tenant's job table.
type Job struct {
	ID          int64  `json:"id"`
	Title       string `json:"job_title"`
	Description string `json:"job_description"`
}

// Candidate is a matched applicant row from a tenant's selected table.
// Rows are written by the external ingestion worker; this service only
// reads them. Skills keeps the comma-joined form the worker stores.
type Candidate struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhoneNo  string `json:"phone_no"`
	Skills   string `json:"skills"`
	FileName string `json:"file_name"`
}

const (
	EventTenantRegistered = "tenant_registered"
	EventTenantDeleted    = "tenant_deleted"
)

// TenantEvent notifies the ingestion worker about registry changes.
type TenantEvent struct {
	Event     string `json:"event"`
	Company   string `json:"company"`
	WorkEmail string `json:"work_email"`
}
