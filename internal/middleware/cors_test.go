package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name       string
		allowed    []string
		origin     string
		preflight  bool
		wantOrigin string
		wantCreds  string
		wantStatus int
	}{
		{name: "listed origin", allowed: []string{"https://studio.example/"}, origin: "https://studio.example", wantOrigin: "https://studio.example", wantCreds: "true", wantStatus: http.StatusTeapot},
		{name: "unlisted origin", allowed: []string{"https://studio.example"}, origin: "https://evil.example", wantStatus: http.StatusTeapot},
		{name: "wildcard without credentials", allowed: []string{"*"}, origin: "https://any.example", wantOrigin: "*", wantStatus: http.StatusTeapot},
		{name: "preflight", allowed: []string{"https://studio.example"}, origin: "https://studio.example", preflight: true, wantOrigin: "https://studio.example", wantCreds: "true", wantStatus: http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			method := http.MethodGet
			if tc.preflight {
				method = http.MethodOptions
			}
			req := httptest.NewRequest(method, "/v1/designs", nil)
			req.Header.Set("Origin", tc.origin)
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			CORS(tc.allowed)(next).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Fatalf("allow-origin = %q, want %q", got, tc.wantOrigin)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != tc.wantCreds {
				t.Fatalf("allow-credentials = %q, want %q", got, tc.wantCreds)
			}
		})
	}
}
