package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func allowlistedOK(cidrs []string) http.Handler {
	mw := IPAllowlist(cidrs, discardLogger())
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func getFrom(t *testing.T, h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = remoteAddr
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPAllowlist_MatchingAddr(t *testing.T) {
	h := allowlistedOK([]string{"127.0.0.0/8"})
	rec := getFrom(t, h, "127.0.0.1:43210")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPAllowlist_OutsideAddr(t *testing.T) {
	h := allowlistedOK([]string{"10.0.0.0/8"})
	rec := getFrom(t, h, "203.0.113.9:43210")

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Contains(t, body, "error")
}

func TestIPAllowlist_SeveralRanges(t *testing.T) {
	h := allowlistedOK([]string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})

	cases := []struct {
		name   string
		addr   string
		status int
	}{
		{"ten range", "10.1.2.3:1234", http.StatusOK},
		{"one seventy two range", "172.16.5.5:1234", http.StatusOK},
		{"one ninety two range", "192.168.1.1:1234", http.StatusOK},
		{"public addr", "8.8.8.8:1234", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := getFrom(t, h, tc.addr)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestIPAllowlist_MalformedCIDRSkipped(t *testing.T) {
	h := allowlistedOK([]string{"not-a-cidr", "127.0.0.0/8"})
	rec := getFrom(t, h, "127.0.0.1:1234")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPAllowlist_IPv6Loopback(t *testing.T) {
	h := allowlistedOK([]string{"::1/128"})
	rec := getFrom(t, h, "[::1]:1234")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPAllowlist_RemoteAddrWithoutPort(t *testing.T) {
	h := allowlistedOK([]string{"127.0.0.0/8"})
	rec := getFrom(t, h, "127.0.0.1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPAllowlist_NoCIDRsDeniesEveryone(t *testing.T) {
	h := allowlistedOK(nil)
	rec := getFrom(t, h, "127.0.0.1:1234")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func pprofRouter(cidrs []string) *chi.Mux {
	r := chi.NewRouter()
	RegisterPprof(r, cidrs, discardLogger())
	return r
}

func TestRegisterPprof_IndexAllowed(t *testing.T) {
	rec := getFrom(t, pprofRouter([]string{"127.0.0.0/8"}), "127.0.0.1:1234")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pprof")
}

func TestRegisterPprof_IndexDenied(t *testing.T) {
	rec := getFrom(t, pprofRouter([]string{"10.0.0.0/8"}), "203.0.113.9:1234")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRegisterPprof_NamedProfiles(t *testing.T) {
	router := pprofRouter([]string{"127.0.0.0/8"})

	for _, path := range []string{
		"/debug/pprof/cmdline",
		"/debug/pprof/symbol",
		"/debug/pprof/heap",
		"/debug/pprof/goroutine",
	} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.RemoteAddr = "127.0.0.1:1234"
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}
