package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNominatim(t *testing.T, handler http.HandlerFunc) *Nominatim {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	n, err := NewNominatim(NominatimConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	return n
}

func TestReverseGeocode(t *testing.T) {
	var gotQuery string
	var gotUA string
	n := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{"display_name":"Menara KL, Jalan Punchak, Kuala Lumpur, Malaysia"}`))
	})

	addr, err := n.ReverseGeocode(context.Background(), Position{Latitude: 3.1528, Longitude: 101.7038})
	require.NoError(t, err)

	assert.Equal(t, "Menara KL, Jalan Punchak, Kuala Lumpur, Malaysia", addr)
	assert.Contains(t, gotQuery, "lat=3.152800")
	assert.Contains(t, gotQuery, "lon=101.703800")
	assert.Contains(t, gotQuery, "format=json")
	assert.Equal(t, "laundry-core/1.0", gotUA)
}

func TestReverseGeocodeMissingDisplayName(t *testing.T) {
	n := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Unable to geocode"}`))
	})

	addr, err := n.ReverseGeocode(context.Background(), Position{})
	require.NoError(t, err, "a nameless result is not an error")
	assert.Equal(t, FallbackAddress, addr)
}

func TestReverseGeocodeServerError(t *testing.T) {
	n := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := n.ReverseGeocode(context.Background(), Position{})
	require.Error(t, err)

	var locErr *LocationError
	assert.ErrorAs(t, err, &locErr)
}

func TestNewNominatimRequiresBaseURL(t *testing.T) {
	_, err := NewNominatim(NominatimConfig{})
	assert.Error(t, err)
}

func TestLocationErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &LocationError{Message: "lookup failed", Err: cause}

	assert.Contains(t, err.Error(), "lookup failed")
	assert.ErrorIs(t, err, cause)
}
