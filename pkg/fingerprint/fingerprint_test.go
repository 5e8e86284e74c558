package fingerprint_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/limitkit/limitkit/pkg/fingerprint"
)

func createTestRequest(headers map[string]string, remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	t.Run("generates consistent fingerprint for same request", func(t *testing.T) {
		t.Parallel()
		req := createTestRequest(map[string]string{
			"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)",
			"Accept":          "text/html,application/xhtml+xml",
			"Accept-Language": "en-US,en;q=0.9",
			"Accept-Encoding": "gzip, deflate, br",
		}, "192.168.1.100:54321")

		fp1 := fingerprint.Generate(req)
		fp2 := fingerprint.Generate(req)

		assert.Equal(t, fp1, fp2, "fingerprints should be consistent")
		assert.Regexp(t, "^v1:[a-f0-9]{64}$", fp1, "fingerprint should be v1:hash format")
	})

	t.Run("ignores header arrival order", func(t *testing.T) {
		t.Parallel()
		req1 := httptest.NewRequest(http.MethodGet, "/", nil)
		req1.RemoteAddr = "192.168.1.100:54321"
		req1.Header.Set("User-Agent", "agent")
		req1.Header.Set("Accept", "text/html")

		req2 := httptest.NewRequest(http.MethodGet, "/", nil)
		req2.RemoteAddr = "192.168.1.100:54321"
		req2.Header.Set("Accept", "text/html")
		req2.Header.Set("User-Agent", "agent")

		assert.Equal(t, fingerprint.Generate(req1), fingerprint.Generate(req2))
	})

	t.Run("changes when any single attribute changes", func(t *testing.T) {
		t.Parallel()
		base := map[string]string{
			"User-Agent":      "Mozilla/5.0",
			"Accept":          "text/html",
			"Accept-Language": "en-US",
			"Sec-Fetch-Mode":  "navigate",
			"DNT":             "1",
		}

		ref := fingerprint.Generate(createTestRequest(base, "192.168.1.100:54321"))

		for name := range base {
			mutated := make(map[string]string, len(base))
			for k, v := range base {
				mutated[k] = v
			}
			mutated[name] = base[name] + "-changed"

			fp := fingerprint.Generate(createTestRequest(mutated, "192.168.1.100:54321"))
			assert.NotEqual(t, ref, fp, "changing %s should change the hash", name)
		}
	})

	t.Run("distinguishes value position", func(t *testing.T) {
		t.Parallel()
		req1 := createTestRequest(map[string]string{"User-Agent": "abc"}, "192.168.1.100:54321")
		req2 := createTestRequest(map[string]string{"Accept-Language": "abc"}, "192.168.1.100:54321")

		assert.NotEqual(t, fingerprint.Generate(req1), fingerprint.Generate(req2),
			"same value in different attribute slots should produce different hashes")
	})

	t.Run("includes client ip", func(t *testing.T) {
		t.Parallel()
		headers := map[string]string{"User-Agent": "Mozilla/5.0"}

		fp1 := fingerprint.Generate(createTestRequest(headers, "192.168.1.100:54321"))
		fp2 := fingerprint.Generate(createTestRequest(headers, "192.168.1.101:54321"))

		assert.NotEqual(t, fp1, fp2, "different client IPs should produce different fingerprints")
	})

	t.Run("returns empty when every attribute is empty", func(t *testing.T) {
		t.Parallel()
		req := createTestRequest(nil, "garbage")
		assert.Empty(t, fingerprint.Generate(req))
	})

	t.Run("client ip alone is not device signal", func(t *testing.T) {
		t.Parallel()
		req := createTestRequest(nil, "203.0.113.5:54321")
		assert.Empty(t, fingerprint.Generate(req),
			"a header-free request must fall through to address-based identity")
	})

	t.Run("port does not influence the fingerprint", func(t *testing.T) {
		t.Parallel()
		req := createTestRequest(map[string]string{
			"User-Agent": "test-agent",
		}, "203.0.113.5:1234")

		fp1 := fingerprint.Generate(req)
		fp2 := fingerprint.Generate(createTestRequest(map[string]string{
			"User-Agent": "test-agent",
		}, "203.0.113.5:9999"))

		assert.Equal(t, fp1, fp2)
	})
}
