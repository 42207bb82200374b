package model

import (
	"time"
)

// User is an admin API user. Each user acts as one ledger account: requests
// authenticated as this user are executed with Account as the caller.
// When no users exist, the admin API takes the caller from a request header.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username string `gorm:"uniqueIndex" json:"username"`
	// PasswordHash stores a PHC-formatted argon2id hash of the user's password
	PasswordHash string `json:"-"`
	DisplayName  string `json:"display_name"`
	// Account is the hex encoded ledger account of this user
	Account  string `gorm:"index;size:42" json:"account"`
	Disabled bool   `json:"disabled"`
}

// UserUpdate carries the optional changes of a user update; nil fields are
// left untouched
type UserUpdate struct {
	DisplayName *string
	Password    *string
	Account     *Account
	Disabled    *bool
}

// UsersStore manages the admin users and the accounts they act as.
type UsersStore interface {
	Count() (int64, error)
	// List returns all users without password hashes
	List() ([]User, error)
	// ListByAccount returns the users acting as account
	ListByAccount(account Account) ([]User, error)
	Get(username string) (*User, error)
	// Create stores a new user; the implementation must hash the password
	Create(username, password, displayName string, account Account) (*User, error)
	Update(username string, upd UserUpdate) (*User, error)
	Delete(username string) error
	// Authenticate checks the credentials of an enabled user and returns the
	// account it acts as
	Authenticate(username, password string) (Account, error)
}
