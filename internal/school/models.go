package school

import (
	"time"

	id "schoolpay/pkg/domain"
	"schoolpay/pkg/money"
)

// FeeItem is one line of a school's published fee structure for a term.
// Compulsory lines must be part of every checkout for that term; optional
// lines the payer may drop.
type FeeItem struct {
	Name       string       `json:"name"`
	Compulsory bool         `json:"compulsory"`
	Amount     money.Amount `json:"amount"`
	Session    string       `json:"session"`
	Term       int          `json:"term"`
}

// TermPeriod bounds one term of an academic session.
type TermPeriod struct {
	No        int       `json:"no"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Session is one academic year and its term calendar. Fee items reference
// sessions by name.
type Session struct {
	Name  string       `json:"name"`
	Terms []TermPeriod `json:"terms"`
}

// SocialLinks are the school's public profile links.
type SocialLinks struct {
	Twitter   string `json:"twitter,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

// School is an institution that enrolls students and publishes fees.
// CustomFields is the registry of extra per-student roster columns this
// school collects; student CustomValues are keyed by these names.
type School struct {
	ID      id.SchoolID
	Name    string
	Slug    string
	OwnerID id.UserID

	Address string
	Phone   string
	Email   string
	Logo    string
	Tag     string
	Header  string
	Bio     string
	Color   string
	Social  SocialLinks

	FeeItems     []FeeItem
	Sessions     []Session
	FeeDeadline  *time.Time
	Installment  bool
	CustomFields []string

	Version   int64
	CreatedAt time.Time
}

// HasCustomField reports whether name is already registered.
func (s *School) HasCustomField(name string) bool {
	for _, f := range s.CustomFields {
		if f == name {
			return true
		}
	}
	return false
}

// FeesFor returns the fee lines for one session and term.
func (s *School) FeesFor(session string, term int) []FeeItem {
	var items []FeeItem
	for _, f := range s.FeeItems {
		if f.Session == session && f.Term == term {
			items = append(items, f)
		}
	}
	return items
}

// CompulsoryFeesFor returns only the compulsory fee lines for one session
// and term.
func (s *School) CompulsoryFeesFor(session string, term int) []FeeItem {
	var items []FeeItem
	for _, f := range s.FeesFor(session, term) {
		if f.Compulsory {
			items = append(items, f)
		}
	}
	return items
}

// CurrentSession returns the name of the session whose calendar covers now,
// or "" when no term period matches.
func (s *School) CurrentSession(now time.Time) string {
	for _, sess := range s.Sessions {
		for _, t := range sess.Terms {
			if !now.Before(t.StartDate) && !now.After(t.EndDate) {
				return sess.Name
			}
		}
	}
	return ""
}
