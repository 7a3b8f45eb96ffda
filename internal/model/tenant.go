package model

import (
	"fmt"
	"time"
)

// BusinessHours is the tenant-configured window in which submissions are
// permitted. Start/End are wall-clock HH:MM in Zone; Days is the set of
// permitted weekdays (0=Sunday .. 6=Saturday).
type BusinessHours struct {
	Days  map[time.Weekday]bool
	Start string // "HH:MM"
	End   string // "HH:MM"
	Zone  *time.Location
}

// Contains reports whether t falls within the business-hours window,
// inclusive of the end boundary (spec.md §8: "at send_end_time, work still
// begins").
func (b BusinessHours) Contains(t time.Time) bool {
	if b.Zone == nil {
		b.Zone = time.UTC
	}
	local := t.In(b.Zone)
	if len(b.Days) > 0 && !b.Days[local.Weekday()] {
		return false
	}
	start, err := parseHHMM(b.Start)
	if err != nil {
		return false
	}
	end, err := parseHHMM(b.End)
	if err != nil {
		return false
	}
	cur := local.Hour()*60 + local.Minute()
	return cur >= start && cur <= end
}

func parseHHMM(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid HH:MM value %q", s)
	}
	return h*60 + m, nil
}

// Client is the client-identity record carried by a tenant: name, kana and
// hiragana variants, split/unified email and phone, split postal code, the
// five-part address, role, and gender.
type Client struct {
	ID int64

	LastName  string
	FirstName string
	FullName  string // unified, "last<ideographic space>first"

	LastKana  string
	FirstKana string
	FullKana  string

	LastHiragana  string
	FirstHiragana string
	FullHiragana  string

	Email1   string // local part
	Email2   string // domain
	Email    string // unified

	Phone1, Phone2, Phone3 string
	Phone                  string // unified

	Postal1, Postal2 string // unified postal split in two

	// Address parts 1-4 are concatenated directly; part 5 (if present)
	// is appended after an ideographic space.
	Address1, Address2, Address3, Address4, Address5 string
	Prefecture                                        string

	Role   string
	Gender string // "male" | "female" | "" (unspecified)

	CompanyName string
}

// Targeting is the tenant ("targeting") configuration: message/subject
// template, business hours, optional daily cap, and the client identity.
type Targeting struct {
	ID              int64
	ClientID        int64
	Active          bool
	Subject         string
	Message         string // may contain placeholders, see combine.RenderTemplate
	BusinessHours   BusinessHours
	MaxDailySends   int // 0 = unlimited
	Client          Client
}
