package companystore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFallsBackToDefaultTableNames(t *testing.T) {
	s := New(nil, "", "")
	require.Equal(t, DefaultCompanyTable, s.companyTable)
	require.Equal(t, DefaultSubmissionsTable, s.submissionsTable)
}

func TestNewKeepsConfiguredTableNames(t *testing.T) {
	s := New(nil, "clients_companies", "clients_send_queue")
	require.Equal(t, "clients_companies", s.companyTable)
	require.Equal(t, "clients_send_queue", s.submissionsTable)
}

func TestNewFallsBackIndependently(t *testing.T) {
	s := New(nil, "clients_companies", "")
	require.Equal(t, "clients_companies", s.companyTable)
	require.Equal(t, DefaultSubmissionsTable, s.submissionsTable)
}
