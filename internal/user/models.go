package user

import (
	"strings"
	"time"
	"unicode"

	"schoolpay/internal/payment"
	id "schoolpay/pkg/domain"
)

// Role controls what a user may do. School accounts create schools and
// import rosters; students pay fees; admins see everything.
type Role string

const (
	RoleStudent Role = "student"
	RoleSchool  Role = "school"
	RoleAdmin   Role = "admin"
)

var validRoles = map[Role]bool{
	RoleStudent: true,
	RoleSchool:  true,
	RoleAdmin:   true,
}

func (r Role) IsValid() bool { return validRoles[r] }

// User is an account. Version guards concurrent writes: every update is
// conditional on it, which is what keeps webhook-driven entitlement writes
// from trampling profile updates (and vice versa).
type User struct {
	ID        id.UserID
	FirstName string
	LastName  string
	Email     string
	Username  string
	Role      Role

	// PasswordHash is a bcrypt hash; it never leaves the service layer.
	PasswordHash []byte

	Bio           string
	BankName      string
	BankCode      string
	AccountName   string
	AccountNumber string
	Picture       string

	School id.SchoolID

	// CustomValues holds per-user values for the owning school's registered
	// custom roster fields, keyed by field name.
	CustomValues map[string]string

	Entitlement *payment.Entitlement

	ResetTokenHash    string
	ResetTokenExpires time.Time

	Version   int64
	CreatedAt time.Time
}

// Slugify derives the username from a display name: lowercased, spaces
// collapsed to hyphens, everything else non-alphanumeric dropped.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// NormalizeEmail strips whitespace and lowercases, matching how emails are
// stored and looked up everywhere (including webhook reconciliation).
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.Join(strings.Fields(email), ""))
}
