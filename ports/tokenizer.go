package ports

import "github.com/muralhq/walletgate/core"

// SessionTokenizer converts between session domain objects and credentials.
type SessionTokenizer interface {
	// SessionToToken mints a signed credential embedding the session claims.
	SessionToToken(session *core.Session) (string, error)

	// TokenToSession parses and integrity-checks a credential. Expired or
	// tampered credentials fail with core.ErrUnauthenticated; the blacklist
	// and directory checks are the caller's concern.
	TokenToSession(token string) (*core.Session, error)
}
