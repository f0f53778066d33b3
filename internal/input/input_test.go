package input

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kostichs/company-enricher/internal/model"
)

func TestParseCompaniesWithHeader(t *testing.T) {
	csv := "Company_Name,Official_Website\nAcme Robotics,https://acme.com\nGlobex,\n"

	recs, err := parseCompanies(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, 1, recs[0].Index)
	assert.Equal(t, "Acme Robotics", recs[0].Name)
	assert.Equal(t, "https://acme.com", recs[0].SeedURL)
	assert.Equal(t, model.StatusPending, recs[0].Status)

	assert.Equal(t, 2, recs[1].Index)
	assert.Equal(t, "Globex", recs[1].Name)
	assert.Empty(t, recs[1].SeedURL)
}

func TestParseCompaniesWithoutHeader(t *testing.T) {
	csv := "Acme Robotics\nGlobex\n"

	recs, err := parseCompanies(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Acme Robotics", recs[0].Name)
}

func TestParseCompaniesSkipsBlankNames(t *testing.T) {
	csv := "company\nAcme\n\n   \nGlobex\n"

	recs, err := parseCompanies(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	// Indexes stay contiguous across skipped rows.
	assert.Equal(t, 1, recs[0].Index)
	assert.Equal(t, 2, recs[1].Index)
}

func TestParseCompaniesHeaderCaseInsensitive(t *testing.T) {
	csv := "NAME,Website\nAcme,https://acme.com\n"

	recs, err := parseCompanies(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "https://acme.com", recs[0].SeedURL)
}

func TestParseCompaniesEmpty(t *testing.T) {
	_, err := parseCompanies(strings.NewReader(""))
	assert.Error(t, err)

	_, err = parseCompanies(strings.NewReader("company\n"))
	assert.Error(t, err)
}

func TestReadCompanies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("company\nAcme\n"), 0o644))

	recs, err := ReadCompanies(path)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = ReadCompanies(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
