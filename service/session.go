package service

import (
	"errors"
	"time"

	"github.com/MohitSaini10/dan-aliph/apperr"
	"github.com/MohitSaini10/dan-aliph/models"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is the verified identity carried by a request.
type Session struct {
	UserID    primitive.ObjectID
	Role      string
	Email     string
	ExpiresAt time.Time
}

type sessionClaims struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionService issues and verifies HS256 session tokens.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionService(secret string, ttl time.Duration) *SessionService {
	return &SessionService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *SessionService) TTL() time.Duration { return s.ttl }

func (s *SessionService) Issue(u *models.User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := sessionClaims{
		ID:    u.ID.Hex(),
		Role:  u.Role,
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Verify checks signature and expiry, then the claim schema: id must be an
// ObjectID, role one of the known roles and email non-empty. Every failure
// is reported as Unauthenticated.
func (s *SessionService) Verify(raw string) (*Session, error) {
	if raw == "" {
		return nil, apperr.Unauthenticated("")
	}
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthenticated("Session expired")
		}
		return nil, apperr.Unauthenticated("Invalid token")
	}
	id, err := primitive.ObjectIDFromHex(claims.ID)
	if err != nil || !models.IsValidRole(claims.Role) || claims.Email == "" {
		return nil, apperr.Unauthenticated("Invalid token")
	}
	return &Session{
		UserID:    id,
		Role:      claims.Role,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
