package httpx

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{name: "ipv4 with port", remoteAddr: "203.0.113.7:51432", want: "203.0.113.7"},
		{name: "ipv6 with port", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "bare ipv6 without port", remoteAddr: "::1", want: "::1"},
		{name: "bare ipv4 without port", remoteAddr: "203.0.113.7", want: "203.0.113.7"},
		{
			name:       "forwarded header wins",
			remoteAddr: "10.0.0.1:80",
			forwarded:  "198.51.100.9, 10.0.0.1",
			want:       "198.51.100.9",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := &http.Request{RemoteAddr: tc.remoteAddr, Header: http.Header{}}
			if tc.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			require.Equal(t, tc.want, ClientIP(r))
		})
	}
}
