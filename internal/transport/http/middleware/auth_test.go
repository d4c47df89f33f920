package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"lumagram/internal/auth"
)

// stubVerifier maps exact token strings to results.
type stubVerifier struct {
	tokens map[string]int64
	err    error
}

func (s *stubVerifier) Verify(token string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if id, ok := s.tokens[token]; ok {
		return id, nil
	}
	return 0, auth.ErrInvalidToken
}

func echoUserID(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]int64{"user_id": userID})
	})
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	return resp.Error.Code
}

func TestRequireAuth(t *testing.T) {
	verifier := &stubVerifier{tokens: map[string]int64{"good-token": 42}}
	handler := RequireAuth(verifier)(echoUserID(t))

	tests := []struct {
		name       string
		authHeader string
		verifier   TokenVerifier
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing token is 401",
			authHeader: "",
			verifier:   verifier,
			wantStatus: http.StatusUnauthorized,
			wantCode:   CodeTokenMissing,
		},
		{
			name:       "malformed header is 401",
			authHeader: "good-token",
			verifier:   verifier,
			wantStatus: http.StatusUnauthorized,
			wantCode:   CodeTokenMissing,
		},
		{
			name:       "invalid token is 403",
			authHeader: "Bearer bad-token",
			verifier:   verifier,
			wantStatus: http.StatusForbidden,
			wantCode:   CodeTokenInvalid,
		},
		{
			name:       "expired token is 403",
			authHeader: "Bearer stale-token",
			verifier:   &stubVerifier{err: auth.ErrTokenExpired},
			wantStatus: http.StatusForbidden,
			wantCode:   CodeTokenExpired,
		},
		{
			name:       "valid token passes through",
			authHeader: "Bearer good-token",
			verifier:   verifier,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler
			if tt.verifier != verifier {
				h = RequireAuth(tt.verifier)(echoUserID(t))
			}

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if code := errorCode(t, rec.Body.Bytes()); code != tt.wantCode {
					t.Errorf("error code = %q, want %q", code, tt.wantCode)
				}
			}
		})
	}
}

func TestRequireAuth_SetsUserID(t *testing.T) {
	verifier := &stubVerifier{tokens: map[string]int64{"good-token": 42}}
	handler := RequireAuth(verifier)(echoUserID(t))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	var body map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body["user_id"] != 42 {
		t.Errorf("user_id = %d, want 42", body["user_id"])
	}
}

func TestOptionalAuth(t *testing.T) {
	verifier := &stubVerifier{tokens: map[string]int64{"good-token": 42}}
	handler := OptionalAuth(verifier)(echoUserID(t))

	tests := []struct {
		name       string
		authHeader string
		wantUserID int64
	}{
		{
			name:       "no token proceeds unauthenticated",
			authHeader: "",
			wantUserID: 0,
		},
		{
			name:       "invalid token proceeds unauthenticated",
			authHeader: "Bearer bad-token",
			wantUserID: 0,
		},
		{
			name:       "valid token resolves user",
			authHeader: "Bearer good-token",
			wantUserID: 42,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/1", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}

			var body map[string]int64
			if len(rec.Body.Bytes()) > 0 {
				json.Unmarshal(rec.Body.Bytes(), &body)
			}
			if body["user_id"] != tt.wantUserID {
				t.Errorf("user_id = %d, want %d", body["user_id"], tt.wantUserID)
			}
		})
	}
}
