package xclient

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedSigner() *oauth1Signer {
	s := newOAuth1Signer("ck", "cs", "at", "as")
	s.nowFn = func() time.Time { return time.Unix(1700000000, 0) }
	s.nonceFn = func() string { return "nonce" }
	return s
}

func TestOAuth1HeaderFields(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "https://api.twitter.com/2/tweets", nil)
	fixedSigner().sign(req)
	h := req.Header.Get("Authorization")
	require.True(t, strings.HasPrefix(h, "OAuth "))
	for _, want := range []string{
		`oauth_consumer_key="ck"`,
		`oauth_nonce="nonce"`,
		`oauth_signature_method="HMAC-SHA1"`,
		`oauth_timestamp="1700000000"`,
		`oauth_token="at"`,
		`oauth_version="1.0"`,
		`oauth_signature="`,
	} {
		require.Contains(t, h, want)
	}
}

func TestOAuth1SignatureCoversMethodAndQuery(t *testing.T) {
	s := fixedSigner()
	sig := func(method, rawURL string) string {
		req, _ := http.NewRequest(method, rawURL, nil)
		s.sign(req)
		return req.Header.Get("Authorization")
	}
	base := sig(http.MethodGet, "https://api.twitter.com/2/users/42/mentions?since_id=1")
	require.Equal(t, base, sig(http.MethodGet, "https://api.twitter.com/2/users/42/mentions?since_id=1"))
	require.NotEqual(t, base, sig(http.MethodPost, "https://api.twitter.com/2/users/42/mentions?since_id=1"))
	require.NotEqual(t, base, sig(http.MethodGet, "https://api.twitter.com/2/users/42/mentions?since_id=2"))
}

func TestRFC3986(t *testing.T) {
	require.Equal(t, "a%20b%2A%2C", rfc3986("a b*,"))
	require.Equal(t, "Ladies%20%2B%20Gentlemen", rfc3986("Ladies + Gentlemen"))
}
