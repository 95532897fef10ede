package adapter

import (
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_TrustsCAFile(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	block := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(caFile, block, 0o600))

	t.Run("without the CA the server is rejected", func(t *testing.T) {
		client, err := HTTPClient(ServerConfig{})
		require.NoError(t, err)

		_, err = client.Get(srv.URL)
		assert.Error(t, err)
	})

	t.Run("with the CA the request succeeds", func(t *testing.T) {
		client, err := HTTPClient(ServerConfig{CAFile: caFile, HTTP2: true})
		require.NoError(t, err)

		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestHTTPClient_RegistersHTTP2(t *testing.T) {
	client, err := HTTPClient(ServerConfig{HTTP2: true})
	require.NoError(t, err)

	tr, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Contains(t, tr.TLSNextProto, "h2")

	plain, err := HTTPClient(ServerConfig{})
	require.NoError(t, err)
	assert.NotContains(t, plain.Transport.(*http.Transport).TLSNextProto, "h2")
}

func TestHTTPClient_BadCAFile(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0o600))

	_, err := HTTPClient(ServerConfig{CAFile: garbage})
	require.Error(t, err)
	assert.ErrorContains(t, err, "no PEM certificates")

	_, err = HTTPClient(ServerConfig{CAFile: filepath.Join(dir, "missing.pem")})
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to read CA file")
}
