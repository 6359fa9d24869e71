package domain

import (
	"strings"
	"time"
)

// State is the lifecycle state of an identity record.
type State string

const (
	StatePending   State = "pending"
	StateFinalized State = "finalized"
	StateDemo      State = "demo"
)

// Searchable record fields for full-scan lookups.
const (
	FieldEmail    = "email"
	FieldUsername = "username"
)

// DemoEmailDomain is appended to a demo username to synthesize its email.
const DemoEmailDomain = "demo.local"

// Record is the persisted identity.
//
// Password holds plaintext only while the record is pending; a finalized
// record always carries a hash. Demo records carry no password at all.
type Record struct {
	Email       string    `yaml:"email"`
	Username    string    `yaml:"username"`
	Password    string    `yaml:"password,omitempty"`
	Code        string    `yaml:"code,omitempty"`
	CreatedTime time.Time `yaml:"createdTime"`
	Verified    bool      `yaml:"verified"`
	Demo        bool      `yaml:"demo,omitempty"`

	// PasswordHashed marks a pending record whose password was hashed at
	// registration time (HASH_PENDING_PASSWORDS).
	PasswordHashed bool `yaml:"passwordHashed,omitempty"`
}

// State derives the lifecycle state from the record fields.
func (r Record) State() State {
	switch {
	case r.Demo:
		return StateDemo
	case r.Verified:
		return StateFinalized
	default:
		return StatePending
	}
}

// Field returns the value of a searchable field and whether the name is known.
func (r Record) Field(name string) (string, bool) {
	switch name {
	case FieldEmail:
		return r.Email, true
	case FieldUsername:
		return r.Username, true
	default:
		return "", false
	}
}

// Normalize trims and lowercases an email, username or store key.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DemoEmail synthesizes the email stored on a demo record.
func DemoEmail(username string) string {
	return username + "@" + DemoEmailDomain
}
