package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestActorRoundTrip(t *testing.T) {
	ctx := ContextWithActor(context.Background(), ActorAdmin)
	actor, ok := ActorFromContext(ctx)
	if !ok || actor != ActorAdmin {
		t.Fatalf("expected admin actor, got %q (ok=%v)", actor, ok)
	}

	if _, ok := ActorFromContext(context.Background()); ok {
		t.Fatalf("expected no actor on empty context")
	}
}

func TestRequireAdminToken(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		token      string
		header     string
		value      string
		wantStatus int
		wantActor  string
	}{
		{name: "disabled", token: "", wantStatus: http.StatusNoContent, wantActor: ActorAnonymous},
		{name: "missing", token: "secret", wantStatus: http.StatusUnauthorized},
		{name: "wrong bearer", token: "secret", header: "Authorization", value: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "bearer", token: "secret", header: "Authorization", value: "Bearer secret", wantStatus: http.StatusNoContent, wantActor: ActorAdmin},
		{name: "header", token: "secret", header: "X-Admin-Token", value: "secret", wantStatus: http.StatusNoContent, wantActor: ActorAdmin},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodPost, "/api/import/templates", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			rec := httptest.NewRecorder()

			RequireAdminToken(tc.token)(next).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			if seen != tc.wantActor {
				t.Fatalf("expected actor %q, got %q", tc.wantActor, seen)
			}
		})
	}
}
