package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validTenantYAML() string {
	return `
targeting_id: 1
client_id: 2
active: true
client:
  company_name: Acme Inc
  company_name_kana: アクメ
  form_sender_name: Taro Yamada
  last_name: Yamada
  first_name: Taro
  last_name_kana: ヤマダ
  first_name_kana: タロウ
  last_name_hiragana: やまだ
  first_name_hiragana: たろう
  position: Sales
  gender: male
  email_1: taro
  email_2: example.com
  postal_code_1: "100"
  postal_code_2: "0001"
  address_1: Tokyo
  address_2: Chiyoda
  address_3: "1-1"
  address_4: Building A
  phone_1: "03"
  phone_2: "1234"
  phone_3: "5678"
targeting:
  subject: Inquiry
  message: Hello
  max_daily_sends: 10
  send_start_time: "09:00"
  send_end_time: "18:00"
  send_days_of_week: [1, 2, 3, 4, 5]
`
}

func writeTenantFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tenant.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadTenantConfigValidFile(t *testing.T) {
	path := writeTenantFile(t, validTenantYAML())
	targeting, err := LoadTenantConfig(path, time.UTC)
	require.NoError(t, err)

	require.Equal(t, int64(1), targeting.ID)
	require.Equal(t, int64(2), targeting.ClientID)
	require.Equal(t, 10, targeting.MaxDailySends)
	require.Equal(t, "Yamada　Taro", targeting.Client.FullName)
	require.Equal(t, "taro@example.com", targeting.Client.Email)
	require.Equal(t, "0312345678", targeting.Client.Phone)
	require.True(t, targeting.BusinessHours.Days[time.Monday])
	require.False(t, targeting.BusinessHours.Days[time.Sunday])
}

func TestLoadTenantConfigRejectsMissingClientField(t *testing.T) {
	path := writeTenantFile(t, `
targeting_id: 1
client_id: 2
client:
  company_name: Acme Inc
targeting:
  subject: Inquiry
  message: Hello
  max_daily_sends: 10
  send_start_time: "09:00"
  send_end_time: "18:00"
  send_days_of_week: [1]
`)
	_, err := LoadTenantConfig(path, time.UTC)
	require.Error(t, err)
	require.Contains(t, err.Error(), "client section missing required fields")
}

func TestLoadTenantConfigRejectsBadTimeFormat(t *testing.T) {
	bad := validTenantYAML()
	bad = replaceOnce(bad, `send_start_time: "09:00"`, `send_start_time: "9am"`)
	path := writeTenantFile(t, bad)
	_, err := LoadTenantConfig(path, time.UTC)
	require.Error(t, err)
	require.Contains(t, err.Error(), "send_start_time")
}

func TestLoadTenantConfigRejectsNonPositiveMaxDailySends(t *testing.T) {
	bad := replaceOnce(validTenantYAML(), "max_daily_sends: 10", "max_daily_sends: 0")
	path := writeTenantFile(t, bad)
	_, err := LoadTenantConfig(path, time.UTC)
	require.Error(t, err)
	require.Contains(t, err.Error(), "max_daily_sends")
}

func TestLoadTenantConfigRejectsOutOfRangeWeekday(t *testing.T) {
	bad := replaceOnce(validTenantYAML(), "send_days_of_week: [1, 2, 3, 4, 5]", "send_days_of_week: [7]")
	path := writeTenantFile(t, bad)
	_, err := LoadTenantConfig(path, time.UTC)
	require.Error(t, err)
	require.Contains(t, err.Error(), "send_days_of_week")
}

func TestResolveTenantConfigPathPicksNewestMatch(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "tenant_1.yaml")
	newer := filepath.Join(dir, "tenant_2.yaml")
	require.NoError(t, os.WriteFile(older, []byte("a"), 0o600))
	require.NoError(t, os.Chtimes(older, time.Now().Add(-time.Hour), time.Now().Add(-time.Hour)))
	require.NoError(t, os.WriteFile(newer, []byte("b"), 0o600))

	resolved, err := ResolveTenantConfigPath(filepath.Join(dir, "tenant_*.yaml"))
	require.NoError(t, err)
	require.Equal(t, newer, resolved)
}

func TestResolveTenantConfigPathReturnsExactPathUnchanged(t *testing.T) {
	dir := t.TempDir()
	exact := filepath.Join(dir, "tenant.yaml")
	require.NoError(t, os.WriteFile(exact, []byte("a"), 0o600))

	resolved, err := ResolveTenantConfigPath(exact)
	require.NoError(t, err)
	require.Equal(t, exact, resolved)
}

func TestResolveTenantConfigPathErrorsWhenNoMatch(t *testing.T) {
	_, err := ResolveTenantConfigPath("/nonexistent/path/tenant.yaml")
	require.Error(t, err)
}

func replaceOnce(s, old, new string) string {
	for i := 0; i+len(old) <= len(s); i++ {
		if s[i:i+len(old)] == old {
			return s[:i] + new + s[i+len(old):]
		}
	}
	return s
}
