package dedupe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/form-sender/formrunner/internal/catalog"
)

func TestRegisterFirstClaimAlwaysSucceeds(t *testing.T) {
	m := New()
	require.True(t, m.Register(catalog.FieldCompanyName, "Acme Inc", 10))
	require.Equal(t, []string{catalog.FieldCompanyName}, m.Holders("Acme Inc"))
}

func TestRegisterHigherPriorityChallengerEvictsUnrelatedField(t *testing.T) {
	m := New()
	require.True(t, m.Register(catalog.FieldFirstName, "Taro", 10))
	// company_name outranks first_name, so a later claim over the same
	// value must evict first_name rather than silently coexisting with it.
	require.True(t, m.Register(catalog.FieldCompanyName, "Taro", 10))
	require.Equal(t, []string{catalog.FieldCompanyName}, m.Holders("Taro"))
}

func TestRegisterLowerPriorityChallengerLoses(t *testing.T) {
	m := New()
	require.True(t, m.Register(catalog.FieldCompanyName, "Taro", 10))
	// last_name ranks below company_name, so its later claim over the same
	// value must be rejected rather than silently coexisting.
	require.False(t, m.Register(catalog.FieldLastName, "Taro", 10))
	require.Equal(t, []string{catalog.FieldCompanyName}, m.Holders("Taro"))
}

func TestRegisterTieBreaksOnScore(t *testing.T) {
	m := New()
	// Neither name appears in the catalog priority table, so both fall back
	// to the same "unknown" priority and the higher score must decide.
	require.True(t, m.Register("custom_field_a", "shared-value", 5))
	require.True(t, m.Register("custom_field_b", "shared-value", 9))
	require.Equal(t, []string{"custom_field_b"}, m.Holders("shared-value"))
}

func TestRegisterEmailConfirmationCoexistsWithPrimaryEmail(t *testing.T) {
	m := New()
	require.True(t, m.Register(catalog.FieldEmail, "taro@example.com", 10))
	require.True(t, m.Register("email_confirm_1", "taro@example.com", 10))
	require.ElementsMatch(t, []string{catalog.FieldEmail, "email_confirm_1"}, m.Holders("taro@example.com"))
}

func TestRegisterPlaceholderValuesAreExemptFromConflict(t *testing.T) {
	m := New()
	require.True(t, m.Register(catalog.FieldLastName, "　", 10))
	require.True(t, m.Register(catalog.FieldFirstName, "　", 10))
	require.Empty(t, m.Holders("　"))
}

func TestIsPlaceholderRecognizesIdeographicSpace(t *testing.T) {
	require.True(t, IsPlaceholder(""))
	require.True(t, IsPlaceholder("　"))
	require.True(t, IsPlaceholder("  　 "))
	require.False(t, IsPlaceholder("Yamada"))
}
