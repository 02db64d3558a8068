package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/vicictl/internal/testutil/testlog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestStaticTokenValidate(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		name    string
		stored  string
		input   string
		wantErr error
	}{
		{name: "empty token denied", stored: "", input: "abc", wantErr: ErrUnauthorized},
		{name: "mismatched token denied", stored: "abc", input: "xyz", wantErr: ErrUnauthorized},
		{name: "matching token accepted", stored: "abc", input: "abc", wantErr: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			log.Debug().Msgf("auth.StaticToken stored=%q input=%q", tc.stored, tc.input)
			err := (StaticToken{Token: tc.stored}).Validate(tc.input)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestFuncValidator(t *testing.T) {
	testlog.Start(t)
	validator := FuncValidator(func(token string) error {
		if token != "ok" {
			return ErrUnauthorized
		}
		return nil
	})
	require.ErrorIs(t, validator.Validate("bad"), ErrUnauthorized)
	require.NoError(t, validator.Validate("ok"))
}

func TestBearerToken(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer abc", want: "abc", ok: true},
		{header: "bearer  abc ", want: "abc", ok: true},
		{header: "Basic abc", ok: false},
		{header: "Bearer", ok: false},
		{header: "", ok: false},
	}
	for _, tc := range tests {
		r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		got, ok := BearerToken(r)
		require.Equal(t, tc.ok, ok, tc.header)
		require.Equal(t, tc.want, got, tc.header)
	}
}

func TestRequireBearer(t *testing.T) {
	testlog.Start(t)
	h := RequireBearer(StaticToken{Token: "s3cret"}, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	denied := httptest.NewRecorder()
	h.ServeHTTP(denied, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusUnauthorized, denied.Code)
	require.NotEmpty(t, denied.Header().Get("WWW-Authenticate"))

	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.Header.Set("Authorization", "Bearer s3cret")
	allowed := httptest.NewRecorder()
	h.ServeHTTP(allowed, r)
	require.Equal(t, http.StatusNoContent, allowed.Code)
}

func TestTokenFileRereadsOnEachCall(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "metrics.token")
	v := TokenFile(path)
	require.ErrorIs(t, v.Validate("first"), ErrUnauthorized, "missing file denies")

	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0o600))
	require.NoError(t, v.Validate("first"))

	require.NoError(t, os.WriteFile(path, []byte("second"), 0o600))
	require.ErrorIs(t, v.Validate("first"), ErrUnauthorized)
	require.NoError(t, v.Validate("second"))

	require.NoError(t, os.WriteFile(path, nil, 0o600))
	require.ErrorIs(t, v.Validate(""), ErrUnauthorized, "empty file denies")
}
