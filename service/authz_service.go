package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/muralhq/walletgate/internal/eth"
	"github.com/muralhq/walletgate/ports"
)

// RequestCredentials carries the identity material extracted from a request
// by the transport layer: the raw bearer value, if any.
type RequestCredentials struct {
	Bearer string
}

// A resolver inspects one identity path. identified reports whether the
// path found a usable identity at all; isAdmin is only meaningful when
// identified is true. Resolvers never fail open: errors count as not
// identified.
type resolver struct {
	name    string
	resolve func(ctx context.Context, creds RequestCredentials) (isAdmin, identified bool)
}

// AuthzService computes per-request admin decisions from three independent
// signals: a bearer wallet address resolved through the directory, an
// OAuth-issued subject token resolved through the directory, and a static
// environment-configured root address. The signals are a union: any true
// signal grants, none overrides another to false.
type AuthzService struct {
	directory ports.UserDirectory
	log       *slog.Logger

	oauthSecret []byte
	rootAdmin   string

	resolvers []resolver
}

// NewAuthzService creates a new authorization resolver. An empty
// oauthSecret disables the OAuth path; an empty rootAdmin disables the
// fallback path.
func NewAuthzService(directory ports.UserDirectory, log *slog.Logger, oauthSecret []byte, rootAdmin string) *AuthzService {
	s := &AuthzService{
		directory:   directory,
		log:         log,
		oauthSecret: oauthSecret,
		rootAdmin:   rootAdmin,
	}

	s.resolvers = []resolver{
		{name: "wallet_bearer", resolve: s.resolveWalletBearer},
		{name: "oauth_subject", resolve: s.resolveOAuthSubject},
		{name: "root_address", resolve: s.resolveRootAddress},
	}

	return s
}

// IsAdmin runs the resolver paths in order. Any admin signal short-circuits
// to true. identified reports whether any path extracted an identity, so
// callers can distinguish 401 (no identity) from 403 (identified, not
// admin). Every decision is logged with its pathway and a truncated
// identifier, never the full credential.
func (s *AuthzService) IsAdmin(ctx context.Context, creds RequestCredentials) (isAdmin, identified bool) {
	for _, r := range s.resolvers {
		admin, found := r.resolve(ctx, creds)
		identified = identified || found
		if admin {
			s.log.Info("authorization granted",
				"pathway", r.name,
				"subject", truncate(creds.Bearer))
			return true, true
		}
	}

	s.log.Info("authorization denied",
		"identified", identified,
		"subject", truncate(creds.Bearer))
	return false, identified
}

// resolveWalletBearer treats a well-formed 0x-prefixed 42-character bearer
// value as a wallet address and consults the directory's admin flag.
func (s *AuthzService) resolveWalletBearer(ctx context.Context, creds RequestCredentials) (bool, bool) {
	if !eth.ValidAddress(creds.Bearer) {
		return false, false
	}

	user, err := s.directory.FindByWalletAddress(ctx, creds.Bearer)
	if err != nil {
		s.log.Error("directory lookup failed on wallet pathway", "error", err)
		return false, true
	}
	if user == nil || user.IsBanned {
		return false, true
	}

	return user.IsAdmin, true
}

// resolveOAuthSubject verifies the bearer value as an OAuth-issued token
// and consults the directory's admin flag for its subject.
func (s *AuthzService) resolveOAuthSubject(ctx context.Context, creds RequestCredentials) (bool, bool) {
	if len(s.oauthSecret) == 0 || creds.Bearer == "" {
		return false, false
	}

	subject, err := s.verifyOAuthToken(creds.Bearer)
	if err != nil {
		return false, false
	}

	user, err := s.directory.FindByID(ctx, subject)
	if err != nil {
		s.log.Error("directory lookup failed on oauth pathway", "error", err)
		return false, true
	}
	if user == nil || user.IsBanned {
		return false, true
	}

	return user.IsAdmin, true
}

// resolveRootAddress compares the bearer wallet address case-insensitively
// against the environment-configured administrator address.
func (s *AuthzService) resolveRootAddress(ctx context.Context, creds RequestCredentials) (bool, bool) {
	if s.rootAdmin == "" || !eth.ValidAddress(creds.Bearer) {
		return false, false
	}

	if eth.EqualAddresses(creds.Bearer, s.rootAdmin) {
		return true, true
	}
	return false, false
}

// verifyOAuthToken checks an HS256 token against the configured secret and
// returns its subject.
func (s *AuthzService) verifyOAuthToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.oauthSecret, nil
	}, jwt.WithExpirationRequired())

	if err != nil || !token.Valid {
		return "", fmt.Errorf("failed to verify oauth token: %w", err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("oauth token has no subject")
	}

	return subject, nil
}

// BearerFromHeader extracts the bearer value from an Authorization header.
func BearerFromHeader(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
