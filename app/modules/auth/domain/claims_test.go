package authdomain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClaims_IsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{name: "not expired (future)", expiresAt: time.Now().Add(1 * time.Hour), want: false},
		{name: "expired (past)", expiresAt: time.Now().Add(-1 * time.Hour), want: true},
		{name: "expired (just now)", expiresAt: time.Now().Add(-1 * time.Second), want: true},
		{name: "no expiry", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Claims{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, c.IsExpired())
		})
	}
}

func TestClaimsContext(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), &Claims{UserID: "u1"})
	claims, ok := ClaimsFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", claims.UserID)

	_, ok = ClaimsFromContext(WithClaims(context.Background(), nil))
	assert.False(t, ok)
}

func TestRole(t *testing.T) {
	tests := []struct {
		role     Role
		valid    bool
		canWrite bool
	}{
		{role: RoleViewer, valid: true},
		{role: RoleCoach, valid: true, canWrite: true},
		{role: RoleAdmin, valid: true, canWrite: true},
		{role: "player"},
	}
	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.role.IsValid())
			assert.Equal(t, tt.canWrite, tt.role.CanWrite())
		})
	}
}
