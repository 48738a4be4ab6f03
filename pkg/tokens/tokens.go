package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// AccessClaims is the signed claim set carried by an access token.
// The subject is the username; id, email and role are snapshots taken
// at issuance and stay fixed until the token expires.
type AccessClaims struct {
	UserID uint   `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and verifies access tokens with a process-wide HS256
// secret. It is constructed once at startup and safe for concurrent use.
type Manager struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewManager(secret []byte, accessTTL time.Duration) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("tokens: empty signing secret")
	}
	if accessTTL <= 0 {
		return nil, errors.New("tokens: non-positive access TTL")
	}
	return &Manager{secret: secret, accessTTL: accessTTL, now: time.Now}, nil
}

// IssueAccess signs a new access token for the given identity snapshot
// and returns it together with its expiry instant.
func (m *Manager) IssueAccess(username string, id uint, email, role string) (string, time.Time, error) {
	now := m.now().UTC()
	exp := now.Add(m.accessTTL)
	claims := AccessClaims{
		UserID: id,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseAccess verifies the signature and expiry of an access token and
// returns its claims. Expiry is strict: a token whose exp equals the
// current instant is already rejected, with zero clock-skew leeway.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	var claims AccessClaims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !tkn.Valid {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}
