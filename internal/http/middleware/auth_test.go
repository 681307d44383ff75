package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAPIKeyAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(key string) *gin.Engine {
		r := gin.New()
		r.Use(RequestID(), APIKeyAuth(key))
		r.GET("/p", func(c *gin.Context) { c.String(http.StatusOK, Principal(c)) })
		return r
	}

	cases := []struct {
		name   string
		key    string
		header string
		value  string
		want   int
	}{
		{"header ok", "s3cret", HeaderAPIKey, "s3cret", http.StatusOK},
		{"bearer ok", "s3cret", "Authorization", "Bearer s3cret", http.StatusOK},
		{"bearer lowercase", "s3cret", "Authorization", "bearer s3cret", http.StatusOK},
		{"wrong key", "s3cret", HeaderAPIKey, "nope", http.StatusUnauthorized},
		{"prefix of key", "s3cret", HeaderAPIKey, "s3c", http.StatusUnauthorized},
		{"missing", "s3cret", "", "", http.StatusUnauthorized},
		{"basic auth ignored", "s3cret", "Authorization", "Basic s3cret", http.StatusUnauthorized},
		{"empty configured key fails closed", "", HeaderAPIKey, "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/p", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			newRouter(tc.key).ServeHTTP(w, req)

			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
			if tc.want == http.StatusOK {
				if got := w.Body.String(); got != KeyFingerprint(tc.key) {
					t.Fatalf("principal mismatch: %q", got)
				}
				return
			}
			if !strings.Contains(w.Header().Get("WWW-Authenticate"), HeaderAPIKey) {
				t.Fatalf("expected WWW-Authenticate challenge")
			}
			var body map[string]string
			_ = json.Unmarshal(w.Body.Bytes(), &body)
			if body["code"] != "unauthorized" || body["request_id"] == "" {
				t.Fatalf("unexpected body: %v", body)
			}
		})
	}
}

func TestKeyFingerprint(t *testing.T) {
	a, b := KeyFingerprint("one"), KeyFingerprint("two")
	if a == b {
		t.Fatalf("fingerprints must differ per key")
	}
	if !strings.HasPrefix(a, "key:") || len(a) != len("key:")+12 {
		t.Fatalf("unexpected fingerprint %q", a)
	}
	if strings.Contains(a, "one") {
		t.Fatalf("fingerprint must not contain the key")
	}
}

func TestPrincipal_Absent(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if Principal(c) != "" {
		t.Fatalf("expected empty principal")
	}
	c.Set(ctxKeyPrincipal, 7)
	if Principal(c) != "" {
		t.Fatalf("expected empty principal for non-string")
	}
}
