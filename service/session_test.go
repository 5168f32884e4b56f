package service

import (
	"testing"
	"time"

	"github.com/MohitSaini10/dan-aliph/apperr"
	"github.com/MohitSaini10/dan-aliph/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func signClaims(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := NewSessionService("k", 4*time.Hour)
	u := &models.User{ID: primitive.NewObjectID(), Role: models.RoleAuthor, Email: "a@example.com"}

	token, exp, err := s.Issue(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(4*time.Hour), exp, 5*time.Second)

	sess, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, sess.UserID)
	assert.Equal(t, models.RoleAuthor, sess.Role)
	assert.Equal(t, "a@example.com", sess.Email)
}

func TestSessionExpiry(t *testing.T) {
	s := NewSessionService("k", time.Hour)
	token, _, err := s.Issue(&models.User{ID: primitive.NewObjectID(), Role: models.RoleUser, Email: "a@example.com"})
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Verify(token)
	require.True(t, apperr.Is(err, apperr.CodeUnauthenticated))
	assert.Equal(t, "Session expired", err.Error())
}

func TestSessionRejectsBadTokens(t *testing.T) {
	s := NewSessionService("k", time.Hour)
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))
	good := func() sessionClaims {
		return sessionClaims{
			ID:               primitive.NewObjectID().Hex(),
			Role:             models.RoleUser,
			Email:            "a@example.com",
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp},
		}
	}

	badID := good()
	badID.ID = "42"
	badRole := good()
	badRole.Role = "superuser"
	noEmail := good()
	noEmail.Email = ""
	noExp := good()
	noExp.ExpiresAt = nil

	cases := map[string]string{
		"empty":          "",
		"garbage":        "not.a.jwt",
		"wrong secret":   signClaims(t, jwt.SigningMethodHS256, []byte("other"), good()),
		"wrong alg":      signClaims(t, jwt.SigningMethodHS512, []byte("k"), good()),
		"id not hex":     signClaims(t, jwt.SigningMethodHS256, []byte("k"), badID),
		"unknown role":   signClaims(t, jwt.SigningMethodHS256, []byte("k"), badRole),
		"missing email":  signClaims(t, jwt.SigningMethodHS256, []byte("k"), noEmail),
		"missing expiry": signClaims(t, jwt.SigningMethodHS256, []byte("k"), noExp),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			sess, err := s.Verify(token)
			assert.Nil(t, sess)
			assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated), "got %v", err)
		})
	}
}
