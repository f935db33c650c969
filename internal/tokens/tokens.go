package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("token invalid")
)

type AccessClaims struct {
	Role     string `json:"role"`
	Username string `json:"username"`
	Epoch    int64  `json:"epoch"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	Epoch int64 `json:"epoch"`
	jwt.RegisteredClaims
}

// Subject is the account state a token pair is minted from.
type Subject struct {
	AccountID uuid.UUID
	Username  string
	Role      string
	Epoch     int64
}

type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Codec signs and verifies the two token kinds. Access and refresh tokens
// use different secrets, so one can never be accepted as the other.
type Codec struct {
	cfg Config
}

func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("tokens: secrets must not be empty")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("tokens: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("tokens: ttl must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Codec{cfg: cfg}, nil
}

func (c *Codec) AccessTTL() time.Duration { return c.cfg.AccessTTL }

func (c *Codec) SignAccess(s Subject) (string, time.Time, error) {
	now := c.cfg.Now()
	exp := now.Add(c.cfg.AccessTTL)
	claims := AccessClaims{
		Role:             s.Role,
		Username:         s.Username,
		Epoch:            s.Epoch,
		RegisteredClaims: c.registered(s.AccountID, now, exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.AccessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return token, exp, nil
}

func (c *Codec) SignRefresh(s Subject) (string, time.Time, error) {
	now := c.cfg.Now()
	exp := now.Add(c.cfg.RefreshTTL)
	claims := RefreshClaims{
		Epoch:            s.Epoch,
		RegisteredClaims: c.registered(s.AccountID, now, exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.RefreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return token, exp, nil
}

func (c *Codec) ParseAccess(raw string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := c.parse(raw, &claims, c.cfg.AccessSecret); err != nil {
		return nil, err
	}
	return &claims, nil
}

func (c *Codec) ParseRefresh(raw string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := c.parse(raw, &claims, c.cfg.RefreshSecret); err != nil {
		return nil, err
	}
	return &claims, nil
}

func (c *Codec) registered(id uuid.UUID, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    c.cfg.Issuer,
		Subject:   id.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        uuid.NewString(),
	}
}

func (c *Codec) parse(raw string, claims jwt.Claims, secret []byte) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.cfg.Now),
	}
	if c.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.cfg.Issuer))
	}

	tkn, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !tkn.Valid {
		return ErrInvalid
	}
	return nil
}

// SubjectID parses the sub claim as an account id.
func SubjectID(rc jwt.RegisteredClaims) (uuid.UUID, error) {
	id, err := uuid.Parse(rc.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalid)
	}
	return id, nil
}
