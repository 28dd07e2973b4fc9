package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"wastewatch/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

const cookieAccessTokenName = "wastewatch_access_token"

// CognitoAuth is the part of the Cognito client used for password login.
type CognitoAuth interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
}

// TokenVerifier turns a raw access token into the caller's identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (types.Identity, error)
}

// JWKVerifier validates JWTs against a key set kept fresh by a jwk.Cache.
type JWKVerifier struct {
	cache     *jwk.Cache
	jwksURL   string
	roleClaim string
}

func NewJWKVerifier(cache *jwk.Cache, jwksURL, roleClaim string) *JWKVerifier {
	return &JWKVerifier{cache: cache, jwksURL: jwksURL, roleClaim: roleClaim}
}

func (v *JWKVerifier) Verify(ctx context.Context, raw string) (types.Identity, error) {
	set, err := v.cache.Lookup(ctx, v.jwksURL)
	if err != nil {
		return types.Identity{}, fmt.Errorf("fetch jwks: %w", err)
	}

	token, err := jwt.Parse([]byte(raw), jwt.WithKeySet(set), jwt.WithValidate(true))
	if err != nil {
		return types.Identity{}, fmt.Errorf("parse jwt: %w", err)
	}

	userID, ok := token.Subject()
	if !ok || userID == "" {
		return types.Identity{}, errors.New("no subject claim in token")
	}

	// email and role are optional claims
	var email, role string
	_ = token.Get("email", &email)
	if v.roleClaim != "" {
		_ = token.Get(v.roleClaim, &role)
	}

	return identityFromClaims(userID, email, role)
}

// identityFromClaims treats a token without a role claim as a citizen.
func identityFromClaims(userID, email, role string) (types.Identity, error) {
	r := types.Role(strings.ToLower(strings.TrimSpace(role)))
	if r == "" {
		r = types.RoleCitizen
	}
	if !r.IsValid() {
		return types.Identity{}, fmt.Errorf("unknown role %q", role)
	}
	return types.Identity{UserID: userID, Email: email, Role: r}, nil
}

// accessToken reads the bearer token, falling back to the session cookie.
func (s *Service) accessToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", errors.New("malformed authorization header")
		}
		return strings.TrimSpace(token), nil
	}

	cookie, err := r.Cookie(cookieAccessTokenName)
	if err != nil {
		return "", err
	}

	var token string
	if err := s.cookie.Decode(cookieAccessTokenName, cookie.Value, &token); err != nil {
		return "", fmt.Errorf("decrypt access token: %w", err)
	}
	return token, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

func (s *Service) handlePostLogin(w http.ResponseWriter, r *http.Request) {
	if s.cognito == nil {
		s.writeErrorCode(w, r, http.StatusNotImplemented, "login_disabled", "password login is not configured")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		s.writeErrorCode(w, r, http.StatusBadRequest, "invalid_request", "invalid login payload")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.writeErrorCode(w, r, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	resp, err := s.cognito.InitiateAuth(r.Context(), &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: cognitotypes.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(s.config.CognitoClientID),
		AuthParameters: map[string]string{
			"USERNAME": req.Email,
			"PASSWORD": req.Password,
		},
	})
	if err != nil {
		// NotAuthorizedException, UserNotConfirmedException, etc.
		s.logger.WithError(err).Info("login rejected")
		s.writeErrorCode(w, r, http.StatusUnauthorized, "unauthenticated", "invalid credentials")
		return
	}

	if resp.AuthenticationResult == nil || resp.AuthenticationResult.AccessToken == nil {
		s.writeErrorCode(w, r, http.StatusUnauthorized, "unauthenticated", "login failed")
		return
	}

	accessToken := aws.ToString(resp.AuthenticationResult.AccessToken)
	expiresIn := int(resp.AuthenticationResult.ExpiresIn)

	encrypted, err := s.cookie.Encode(cookieAccessTokenName, accessToken)
	if err != nil {
		s.logger.WithError(err).Error("failed to encrypt access token")
		s.writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieAccessTokenName,
		Value:    encrypted,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   expiresIn,
		Path:     "/",
	})

	s.writeJSON(w, http.StatusOK, loginResponse{AccessToken: accessToken, ExpiresIn: expiresIn})
}

func (s *Service) handlePostLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieAccessTokenName,
		Value:    "",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}
