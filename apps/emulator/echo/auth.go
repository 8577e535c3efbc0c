package emulatorapi

import (
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/nurturehq/nurture/core"
	"github.com/nurturehq/nurture/core/child"
)

const contextClaimsKey = "claims"

// authClaims is the authorization payload transmitted via the JWT.
type authClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

func (s *server) generateToken(acct *account) (string, error) {
	now := core.NowFunc()
	claims := &authClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(), // keeps refreshed tokens distinct
			Issuer:    "nurture-emulator",
			Subject:   acct.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: acct.Email,
		Name:  acct.Name,
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.opts.SecretKey)
	return ss, errors.Wrap(err, "signing token")
}

// bearerAuth guards the API surface; any parse/verify failure is a plain 401
// so clients go through their refresh-and-retry path.
func (s *server) bearerAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		header := ctx.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return errUnauthorized
		}
		claims := new(authClaims)
		tok, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims,
			func(t *jwt.Token) (interface{}, error) {
				if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
				}
				return s.opts.SecretKey, nil
			})
		if err != nil || !tok.Valid {
			return errUnauthorized
		}
		ctx.Set(contextClaimsKey, claims)
		return next(ctx)
	}
}

func getContextClaims(ctx echo.Context) (*authClaims, error) {
	if claims, isClaims := ctx.Get(contextClaimsKey).(*authClaims); isClaims {
		return claims, nil
	}
	return nil, errUnauthorized
}

// Identity handlers

type (
	signInRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	signUpRequest struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}

	refreshRequest struct {
		GrantType    string `json:"grant_type"`
		RefreshToken string `json:"refresh_token"`
	}

	authResponse struct {
		LocalID      string `json:"localId"`
		Email        string `json:"email"`
		DisplayName  string `json:"displayName"`
		IDToken      string `json:"idToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    string `json:"expiresIn"`
	}

	refreshResponse struct {
		UserID       string `json:"user_id"`
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
	}
)

func (s *server) identitySignIn(ctx echo.Context) error {
	data := new(signInRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	acct, exists := s.store.accounts[data.Email]
	if !exists {
		return errAuthenticationFailed
	}
	if bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(data.Password)) != nil {
		return errAuthenticationFailed
	}
	return s.respondAuth(ctx, acct)
}

func (s *server) identitySignUp(ctx echo.Context) error {
	data := new(signUpRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := validatePassword(data.Password, data.DisplayName, data.Email); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(data.Password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	acct := &account{
		ID:           uuid.NewString(),
		Email:        data.Email,
		Name:         data.DisplayName,
		PasswordHash: hash,
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if _, exists := s.store.accounts[acct.Email]; exists {
		return errEmailExists
	}
	s.store.accounts[acct.Email] = acct
	now := core.NewTimestamp(core.NowFunc())
	s.store.parents[acct.ID] = &child.Parent{
		ID:        acct.ID,
		Email:     acct.Email,
		Name:      acct.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.respondAuth(ctx, acct)
}

func (s *server) identityRefresh(ctx echo.Context) error {
	data := new(refreshRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if data.GrantType != "refresh_token" {
		return errInvalidRefresh
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	grant, exists := s.store.refresh[data.RefreshToken]
	if !exists || core.NowFunc().After(grant.expires) {
		delete(s.store.refresh, data.RefreshToken)
		return errInvalidRefresh
	}
	acct := s.store.accounts[grant.email]

	token, err := s.generateToken(acct)
	if err != nil {
		return err
	}
	return ctx.JSON(200, refreshResponse{
		UserID:       acct.ID,
		IDToken:      token,
		RefreshToken: s.issueRefresh(acct.Email),
		ExpiresIn:    strconv.Itoa(int(s.opts.TokenTTL.Seconds())),
	})
}

// respondAuth writes the sign-in/sign-up payload; callers must hold mu.
func (s *server) respondAuth(ctx echo.Context, acct *account) error {
	token, err := s.generateToken(acct)
	if err != nil {
		return err
	}
	return ctx.JSON(200, authResponse{
		LocalID:      acct.ID,
		Email:        acct.Email,
		DisplayName:  acct.Name,
		IDToken:      token,
		RefreshToken: s.issueRefresh(acct.Email),
		ExpiresIn:    strconv.Itoa(int(s.opts.TokenTTL.Seconds())),
	})
}

// issueRefresh mints a refresh token; callers must hold mu.
func (s *server) issueRefresh(email string) string {
	ref := uuid.NewString()
	s.store.refresh[ref] = refreshGrant{email: email, expires: core.NowFunc().Add(s.opts.RefreshTTL)}
	return ref
}
