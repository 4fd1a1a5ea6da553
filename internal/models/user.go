package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the closed set of account roles. All admin gating goes
// through IsAdmin; handlers never compare role strings directly.
type Role string

const (
	RoleBuyer Role = "buyer"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleAdmin
}

// IsAdmin reports whether r grants back-office capabilities.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// ProfileUpdate represents the self-service patchable fields of an
// account. Email, role and approval are not touched here.
type ProfileUpdate struct {
	CompanyName *string  `json:"company_name,omitempty"`
	ContactName *string  `json:"contact_name,omitempty"`
	Phone       *string  `json:"phone,omitempty"`
	Address     *Address `json:"address,omitempty"`
}

// User is a B2B account. New buyers start unapproved and may
// authenticate but not place orders until an admin approves them.
type User struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CompanyName  string             `json:"company_name" bson:"company_name"`
	ContactName  string             `json:"contact_name,omitempty" bson:"contact_name,omitempty"`
	Email        string             `json:"email" bson:"email"`
	PasswordHash string             `json:"-" bson:"password_hash"`
	Phone        string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Address      Address            `json:"address,omitempty" bson:"address,omitempty"`
	Role         Role               `json:"role" bson:"role"`
	Approved     bool               `json:"approved" bson:"approved"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}
