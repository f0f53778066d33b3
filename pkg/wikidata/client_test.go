package wikidata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPIServer(t *testing.T, searchBody, claimsBody string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("action") {
		case "wbsearchentities":
			_, _ = w.Write([]byte(searchBody))
		case "wbgetclaims":
			_, _ = w.Write([]byte(claimsBody))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
}

func TestLookupOfficialSite(t *testing.T) {
	srv := newAPIServer(t,
		`{"search":[{"id":"Q42","label":"Acme Robotics"}]}`,
		`{"claims":{"P856":[{"mainsnak":{"datavalue":{"value":"https://acmerobotics.com"}}}]}}`,
	)
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	site, err := c.LookupOfficialSite(context.Background(), "Acme Robotics")
	require.NoError(t, err)
	assert.Equal(t, "https://acmerobotics.com", site)
}

func TestLookupOfficialSite_ExactLabelOnly(t *testing.T) {
	// The first hit is a partial match; no exact-label entity exists.
	srv := newAPIServer(t,
		`{"search":[{"id":"Q1","label":"Acme Robotics Holdings"}]}`,
		`{"claims":{}}`,
	)
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.LookupOfficialSite(context.Background(), "Acme Robotics")
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestLookupOfficialSite_CaseInsensitiveLabel(t *testing.T) {
	srv := newAPIServer(t,
		`{"search":[{"id":"Q7","label":"ACME robotics"}]}`,
		`{"claims":{"P856":[{"mainsnak":{"datavalue":{"value":"https://acme.io"}}}]}}`,
	)
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	site, err := c.LookupOfficialSite(context.Background(), "Acme Robotics")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.io", site)
}

func TestLookupOfficialSite_NoClaim(t *testing.T) {
	srv := newAPIServer(t,
		`{"search":[{"id":"Q42","label":"Acme Robotics"}]}`,
		`{"claims":{}}`,
	)
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.LookupOfficialSite(context.Background(), "Acme Robotics")
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestLookupOfficialSite_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.LookupOfficialSite(context.Background(), "Acme Robotics")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}
