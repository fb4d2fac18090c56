package auth

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTAuthenticator_Authenticate(t *testing.T) {
	a, err := NewJWTAuthenticator("test-secret")
	require.NoError(t, err)

	lecturer := models.Principal{ID: "u-1", Name: "Dr. Smith", Role: models.RoleLecturer}
	valid, err := a.IssueToken(lecturer, time.Hour)
	require.NoError(t, err)
	expired, err := a.IssueToken(lecturer, -time.Minute)
	require.NoError(t, err)

	other, err := NewJWTAuthenticator("other-secret")
	require.NoError(t, err)
	foreign, err := other.IssueToken(lecturer, time.Hour)
	require.NoError(t, err)

	unknownRole, err := a.IssueToken(models.Principal{ID: "u-2", Role: "janitor"}, time.Hour)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, TokenClaims{Role: "lecturer"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	testCases := []struct {
		name    string
		token   string
		want    *models.Principal
		wantErr error
	}{
		{name: "valid", token: valid, want: &lecturer},
		{name: "expired", token: expired, wantErr: ErrInvalidToken},
		{name: "wrong secret", token: foreign, wantErr: ErrInvalidToken},
		{name: "alg none", token: unsigned, wantErr: ErrInvalidToken},
		{name: "unknown role", token: unknownRole, wantErr: ErrUnknownRole},
		{name: "garbage", token: "not-a-token", wantErr: ErrInvalidToken},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := a.Authenticate(context.Background(), tc.token)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestJWTAuthenticator_StudentMatNo(t *testing.T) {
	a, err := NewJWTAuthenticator("test-secret")
	require.NoError(t, err)

	token, err := a.IssueToken(models.Principal{ID: "s-1", Name: "Ada", Role: models.RoleStudent, MatNo: "U2021/5520027"}, time.Hour)
	require.NoError(t, err)

	p, err := a.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, p.Role)
	assert.Equal(t, "U2021/5520027", p.MatNo)
	assert.Equal(t, "s-1", p.ActorID())

	token, err = a.IssueToken(models.Principal{ID: "s-2", Role: models.RoleStudent, MatNo: " u2021/5520028 "}, time.Hour)
	require.NoError(t, err)
	p, err = a.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "U2021/5520028", p.MatNo)
}

func TestExtractBearer(t *testing.T) {
	token, err := ExtractBearer("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	token, err = ExtractBearer("bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	for _, h := range []string{"", "Basic abc", "Bearer ", "Bearer"} {
		_, err := ExtractBearer(h)
		assert.ErrorIs(t, err, ErrMissingToken, h)
	}
}

func TestNewJWTAuthenticator_EmptySecret(t *testing.T) {
	_, err := NewJWTAuthenticator("  ")
	assert.Error(t, err)
}
