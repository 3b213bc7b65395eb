package models

// User types recognised by the admin backend.
const (
	UserTypeAdmin     = "admin"
	UserTypeEmployer  = "employer"
	UserTypeCandidate = "candidate"
)

// User is an account that can receive role grants.
type User struct {
	BaseModel

	Email        string  `gorm:"uniqueIndex;not null;size:255" json:"email"`
	PasswordHash string  `gorm:"not null" json:"-"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	UserType     string  `gorm:"not null;size:32;index" json:"user_type"`
	CompanyID    *string `gorm:"type:uuid;index" json:"company_id"`
	IsActive     bool    `gorm:"not null" json:"is_active"`
}
