package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name        string
		origins     []string
		method      string
		origin      string
		preflight   bool
		wantCode    int
		wantOrigin  string
		wantCreds   bool
		wantMethods string
	}{
		{"explicit origin gets credentials", []string{"https://psi.example"}, http.MethodPost, "https://psi.example", false, http.StatusTeapot, "https://psi.example", true, ""},
		{"wildcard has no credentials", []string{"*"}, http.MethodPost, "https://other.example", false, http.StatusTeapot, "https://other.example", false, ""},
		{"unknown origin passes through bare", []string{"https://psi.example"}, http.MethodGet, "https://evil.example", false, http.StatusTeapot, "", false, ""},
		{"preflight answered", []string{"https://psi.example"}, http.MethodOptions, "https://psi.example", true, http.StatusNoContent, "https://psi.example", true, corsMethods},
		{"preflight from unknown origin", []string{"https://psi.example"}, http.MethodOptions, "https://evil.example", true, http.StatusForbidden, "", false, ""},
		{"plain OPTIONS reaches handler", []string{"*"}, http.MethodOptions, "", false, http.StatusTeapot, "", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/chat/messages", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			CORS(tt.origins)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials") == "true"; got != tt.wantCreds {
				t.Errorf("Allow-Credentials = %v, want %v", got, tt.wantCreds)
			}
			if got := rec.Header().Get("Access-Control-Allow-Methods"); got != tt.wantMethods {
				t.Errorf("Allow-Methods = %q, want %q", got, tt.wantMethods)
			}
			if tt.preflight && tt.wantCode == http.StatusNoContent && rec.Header().Get("Access-Control-Max-Age") != "600" {
				t.Errorf("Max-Age = %q, want 600", rec.Header().Get("Access-Control-Max-Age"))
			}
		})
	}
}
