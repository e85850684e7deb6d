package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with the wallet address used to
// authenticate. The registered ID claim carries the jti used for revocation.
type SessionClaims struct {
	jwt.RegisteredClaims
	Address string `json:"addr,omitempty"`
}
