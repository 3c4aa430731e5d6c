package models

import "time"

const (
	AccountTypeUser     = "user"
	AccountTypeOperator = "operator"
	AccountTypeAdmin    = "admin"
)

// Account is a login identity. Password hashes are bcrypt.
type Account struct {
	ID           string    `bson:"id" json:"id"`
	AccountType  string    `bson:"accountType" json:"accountType"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

// ValidAccountType reports whether t is one of the known account types.
func ValidAccountType(t string) bool {
	switch t {
	case AccountTypeUser, AccountTypeOperator, AccountTypeAdmin:
		return true
	}
	return false
}
