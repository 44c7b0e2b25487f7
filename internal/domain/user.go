package domain

// Roles
const (
	RoleUser  = "user"  // Regular saver
	RoleAdmin = "admin" // Back-office operator
)

// KYC statuses
const (
	KYCNone      = "none"      // Nothing submitted yet
	KYCSubmitted = "submitted" // Awaiting admin review
	KYCApproved  = "approved"  // Verified
	KYCRejected  = "rejected"  // Rejected by admin
)

// User Model
type User struct {
	ID          uint   `gorm:"primaryKey" json:"id"`                      // Primary key
	Email       string `gorm:"uniqueIndex;size:191;not null" json:"email"` // Unique, lower-cased email
	FullName    string `gorm:"size:191" json:"full_name"`                  // Display name
	Phone       string `gorm:"size:32" json:"phone"`                       // Phone number
	Password    string `gorm:"not null" json:"-"`                          // Hashed password
	Role        string `gorm:"size:16;default:user" json:"role"`           // Role: user or admin
	KYCStatus   string `gorm:"size:16;default:none;index" json:"kyc_status"`
	KYCIDType   string `gorm:"size:32" json:"kyc_id_type,omitempty"`   // e.g. nin, bvn, passport
	KYCIDNumber string `gorm:"size:64" json:"kyc_id_number,omitempty"` // Document number
	Suspended   bool   `gorm:"not null;default:false" json:"suspended"` // Suspended users cannot log in
	CreatedAt   int64  `gorm:"autoCreateTime:milli" json:"created_at"`  // Timestamp of creation in milliseconds
}

// IsAdmin reports whether the user may use the back office.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
