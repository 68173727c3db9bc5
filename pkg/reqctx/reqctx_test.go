package reqctx

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

type fakeClaims struct {
	uid     uuid.UUID
	role    string
	expired bool
}

func (f fakeClaims) GetUserID() uuid.UUID     { return f.uid }
func (f fakeClaims) GetSessionID() *uuid.UUID { return nil }
func (f fakeClaims) GetRole() string          { return f.role }
func (f fakeClaims) GetTokenType() string     { return "access" }
func (f fakeClaims) IsExpired() bool          { return f.expired }

func TestLogAttrs(t *testing.T) {
	uid := uuid.New()
	tests := []struct {
		name string
		ctx  context.Context
		want map[string]string
	}{
		{"empty context", context.Background(), map[string]string{}},
		{
			"request only",
			WithRequestMeta(context.Background(), &RequestMeta{RequestID: "r-1"}),
			map[string]string{"request_id": "r-1"},
		},
		{
			"request and caller",
			WithClaims(WithRequestMeta(context.Background(), &RequestMeta{RequestID: "r-2"}), fakeClaims{uid: uid, role: "reception"}),
			map[string]string{"request_id": "r-2", "user_id": uid.String(), "role": "reception"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogAttrs(tt.ctx)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d attrs, want %d", len(got), len(tt.want))
			}
			for _, a := range got {
				attr := a.(slog.Attr)
				if tt.want[attr.Key] != attr.Value.String() {
					t.Errorf("%s = %q, want %q", attr.Key, attr.Value.String(), tt.want[attr.Key])
				}
			}
		})
	}
}

func TestIsAuthenticated(t *testing.T) {
	ctx := context.Background()
	if IsAuthenticated(ctx) {
		t.Error("empty context reported as authenticated")
	}
	if !IsAuthenticated(WithClaims(ctx, fakeClaims{role: "admin"})) {
		t.Error("valid claims not authenticated")
	}
	if IsAuthenticated(WithClaims(ctx, fakeClaims{role: "admin", expired: true})) {
		t.Error("expired claims reported as authenticated")
	}
}
