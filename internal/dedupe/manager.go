// Package dedupe implements the duplicate-prevention manager (spec.md
// §4.5): guarantees each concrete value is assigned to at most one
// canonical field, across the whole registry and not just within a
// field's own group, except that email-confirmation fields may share the
// primary email's value. Grounded on spec.md's field-priority rules and
// the upstream duplicate_prevention.py's global value_registry (every
// claim over an already-held value conflicts, regardless of which two
// fields are involved); priority ordering follows the
// essential-fields-first convention in the catalog settings.
package dedupe

import (
	"strings"
	"unicode"

	"github.com/form-sender/formrunner/internal/catalog"
)

// priority ranks canonical fields for conflict resolution: lower index
// wins. Matches spec.md §4.5's listed order (email, message body, company
// name, unified name, split names, phone, subject, ...) with remaining
// fields appended in catalog order.
var priority = buildPriority()

func buildPriority() map[string]int {
	ordered := []string{
		catalog.FieldEmail,
		catalog.FieldMessageBody,
		catalog.FieldCompanyName,
		catalog.FieldFullName,
		catalog.FieldLastName,
		catalog.FieldFirstName,
		catalog.FieldFullNameKana,
		catalog.FieldLastNameKana,
		catalog.FieldFirstNameKana,
		catalog.FieldPhoneUnified,
		catalog.FieldPhone1,
		catalog.FieldPhone2,
		catalog.FieldPhone3,
		catalog.FieldSubject,
	}
	m := make(map[string]int, len(catalog.Catalog))
	for i, name := range ordered {
		m[name] = i
	}
	next := len(ordered)
	for _, p := range catalog.Catalog {
		if _, ok := m[p.Name]; !ok {
			m[p.Name] = next
			next++
		}
	}
	return m
}

// Priority returns field's resolution priority (lower = wins ties).
// Unknown fields sort last.
func Priority(field string) int {
	if p, ok := priority[field]; ok {
		return p
	}
	return len(priority) + 1
}

// entry is one registered (field, score) claim over a value.
type entry struct {
	field string
	score float64
}

// Manager tracks which canonical field currently holds each concrete
// value, enforcing the single-value-ownership invariant across every
// field and the single-primary-email-plus-confirmations exception.
type Manager struct {
	byValue map[string][]entry
}

// New constructs an empty Manager.
func New() *Manager {
	return &Manager{byValue: make(map[string][]entry)}
}

// IsPlaceholder reports whether v is whitespace-only, including the
// ideographic space U+3000, per spec.md §4.5/§8.
func IsPlaceholder(v string) bool {
	if v == "" {
		return true
	}
	for _, r := range v {
		if r == '　' {
			continue
		}
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func isEmailConfirm(field string) bool {
	return strings.HasPrefix(field, catalog.FieldEmailConfirm)
}

// Register attempts to claim value for field with the given score.
// Returns true if the claim succeeds, false if field lost a conflict (and
// was therefore rejected — callers must drop the mapping). Placeholder
// values are always accepted without entering the registry.
func (m *Manager) Register(field, value string, score float64) bool {
	if IsPlaceholder(value) {
		return true
	}

	existing := m.byValue[value]

	// The sole exception: email confirmation fields may coexist with a
	// primary email holding the same value.
	if isEmailConfirm(field) {
		for _, e := range existing {
			if e.field == catalog.FieldEmail {
				m.byValue[value] = append(existing, entry{field, score})
				return true
			}
		}
	}
	if field == catalog.FieldEmail {
		filtered := existing[:0]
		for _, e := range existing {
			if !isEmailConfirm(e.field) {
				filtered = append(filtered, e)
			}
		}
		existing = filtered
	}

	for _, e := range existing {
		if isEmailConfirm(field) && e.field == catalog.FieldEmail {
			continue
		}
		if wins(field, score, e.field, e.score) {
			m.unregisterField(value, e.field)
			continue
		}
		return false
	}

	m.byValue[value] = append(m.byValue[value], entry{field, score})
	return true
}

// wins reports whether challenger beats incumbent: higher field priority
// wins (lower Priority() value), ties broken by score.
func wins(challenger string, challengerScore float64, incumbent string, incumbentScore float64) bool {
	cp, ip := Priority(challenger), Priority(incumbent)
	if cp != ip {
		return cp < ip
	}
	return challengerScore > incumbentScore
}

func (m *Manager) unregisterField(value, field string) {
	entries := m.byValue[value]
	out := entries[:0]
	for _, e := range entries {
		if e.field != field {
			out = append(out, e)
		}
	}
	m.byValue[value] = out
}

// Holders returns every field currently registered against value, for
// diagnostics/testing.
func (m *Manager) Holders(value string) []string {
	var out []string
	for _, e := range m.byValue[value] {
		out = append(out, e.field)
	}
	return out
}
