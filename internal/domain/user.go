// Package domain defines the persistence model for users. The type is mapped
// with GORM and forms the core data layer of the user management application.
package domain

// User represents a registered user of the system.
//
// Fields:
//   - ID: auto-incremented integer primary key, assigned by the database on
//     creation and immutable thereafter.
//   - Username: unique handle, up to 50 characters (min length enforced at
//     the validation layer).
//   - Email: unique address, up to 100 characters.
//   - Age: plain integer; no range constraint is enforced.
//   - Role: free-form role label, up to 20 characters.
//   - PasswordHash: optional credential hash. Never serialized to JSON and
//     never exposed through the API.
//
// Uniqueness of Username and Email is enforced by unique indexes; the
// database constraint is the authoritative arbiter under concurrent writes.
type User struct {
	ID           int    `json:"id"       gorm:"primaryKey;autoIncrement"`
	Username     string `json:"username" gorm:"type:varchar(50);not null;uniqueIndex:ux_users_username"`
	Email        string `json:"email"    gorm:"type:varchar(100);not null;uniqueIndex:ux_users_email"`
	Age          int    `json:"age"      gorm:"not null"`
	Role         string `json:"role"     gorm:"type:varchar(20);not null"`
	PasswordHash string `json:"-"        gorm:"type:varchar(255)"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }
