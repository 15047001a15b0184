package kernel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kernelListServer(t *testing.T, body string, wantToken string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/kernels", r.URL.Path)
		if wantToken != "" {
			require.Equal(t, "token "+wantToken, r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestListKernels(t *testing.T) {
	srv := kernelListServer(t, `[{"id":"k1","name":"python3","last_activity":"2026-08-01T10:00:00Z","execution_state":"idle"}]`, "secret")
	defer srv.Close()

	kernels, err := ListKernels(context.Background(), Server{BaseURL: srv.URL, Token: "secret"})
	require.NoError(t, err)
	require.Len(t, kernels, 1)
	assert.Equal(t, "k1", kernels[0].ID)
	assert.Equal(t, "python3", kernels[0].Name)
}

func TestResolve_ExplicitID(t *testing.T) {
	srv := kernelListServer(t, `[{"id":"k1"},{"id":"k2"}]`, "")
	defer srv.Close()

	k, err := Resolve(context.Background(), Server{BaseURL: srv.URL}, "k2")
	require.NoError(t, err)
	assert.Equal(t, "k2", k.ID)

	_, err = Resolve(context.Background(), Server{BaseURL: srv.URL}, "k9")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestResolve_MostRecent(t *testing.T) {
	srv := kernelListServer(t, `[
		{"id":"old","last_activity":"2026-08-01T09:00:00Z"},
		{"id":"new","last_activity":"2026-08-01T11:00:00Z"}
	]`, "")
	defer srv.Close()

	k, err := Resolve(context.Background(), Server{BaseURL: srv.URL}, "")
	require.NoError(t, err)
	assert.Equal(t, "new", k.ID)
}

func TestResolve_NoKernels(t *testing.T) {
	srv := kernelListServer(t, `[]`, "")
	defer srv.Close()

	_, err := Resolve(context.Background(), Server{BaseURL: srv.URL}, "")
	assert.ErrorIs(t, err, ErrUnavailable)
}
