package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainsToHTTPSAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		domains  []string
		expected string
	}{
		{
			name:     "single domain",
			domains:  []string{"example.com"},
			expected: "https://example.com",
		},
		{
			name:     "multiple domains",
			domains:  []string{"example.com", "www.example.com"},
			expected: "https://example.com, https://www.example.com",
		},
		{
			name:     "no domains",
			domains:  []string{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := domainsToHTTPSAddress(tt.domains)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	srv := &Server{Host: "127.0.0.1", Port: "0"}

	done := make(chan error, 1)

	go func() {
		done <- srv.Run(ctx, http.NotFoundHandler())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRun_UnknownTLSMode(t *testing.T) {
	t.Parallel()

	srv := &Server{Port: "0", TLS: ServerTLS{Enabled: true, Mode: "magic"}}

	err := srv.Run(context.Background(), http.NotFoundHandler())

	var modeErr *UnknownTLSModeError
	require.ErrorAs(t, err, &modeErr)
	assert.Equal(t, "magic", modeErr.Mode)
}

func TestRun_AutoCertRequiresDomains(t *testing.T) {
	t.Parallel()

	srv := &Server{Port: "0", TLS: ServerTLS{Enabled: true, Mode: TLSModeAutoCert, AutoCert: &ServerTLSAutoCert{}}}

	err := srv.Run(context.Background(), http.NotFoundHandler())
	require.Error(t, err)
}
