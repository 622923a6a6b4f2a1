package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIssueAndParse(t *testing.T) {
	a := NewAuthenticator("secret")
	token, err := a.Issue("u1", "Alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, err := a.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.ID != "u1" || id.Name != "Alice" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if _, err := NewAuthenticator("other").Parse(token); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestMiddlewareAttachesIdentity(t *testing.T) {
	a := NewAuthenticator("secret")
	token, _ := a.Issue("u1", "Alice")

	var got Identity
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	cases := []struct {
		name   string
		setup  func(r *http.Request)
		wantID string
	}{
		{"header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, "u1"},
		{"query", func(r *http.Request) { r.URL.RawQuery = "access_token=" + token }, "u1"},
		{"anonymous", func(r *http.Request) {}, ""},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, ""},
	}
	for _, tc := range cases {
		got = Identity{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		tc.setup(req)
		h.ServeHTTP(httptest.NewRecorder(), req)
		if got.ID != tc.wantID {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.wantID, got.ID)
		}
	}
}
