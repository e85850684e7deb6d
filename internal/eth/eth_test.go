package eth

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	otherAddress := crypto.PubkeyToAddress(otherKey.PublicKey).Hex()

	const domain = "walletgate-test"
	const nonce = "8b1a9953c4611296a827abf8c47804d7"

	sig, err := Sign(domain, nonce, key)
	require.NoError(t, err)

	t.Run("valid signature verifies", func(t *testing.T) {
		assert.True(t, VerifySignature(domain, nonce, sig, address))
	})

	t.Run("lowercased address verifies", func(t *testing.T) {
		assert.True(t, VerifySignature(domain, nonce, sig, strings.ToLower(address)))
	})

	t.Run("wrong claimed address fails", func(t *testing.T) {
		assert.False(t, VerifySignature(domain, nonce, sig, otherAddress))
	})

	t.Run("different nonce fails", func(t *testing.T) {
		assert.False(t, VerifySignature(domain, "another-nonce", sig, address))
	})

	t.Run("different domain fails", func(t *testing.T) {
		assert.False(t, VerifySignature("evil.example", nonce, sig, address))
	})

	t.Run("malformed signature hex fails", func(t *testing.T) {
		assert.False(t, VerifySignature(domain, nonce, "not-hex", address))
	})

	t.Run("truncated signature fails", func(t *testing.T) {
		assert.False(t, VerifySignature(domain, nonce, sig[:len(sig)-4], address))
	})

	t.Run("zeroed signature fails", func(t *testing.T) {
		assert.False(t, VerifySignature(domain, nonce, "0x"+strings.Repeat("00", SignatureLength), address))
	})

	t.Run("malformed address fails", func(t *testing.T) {
		assert.False(t, VerifySignature(domain, nonce, sig, "0x1234"))
		assert.False(t, VerifySignature(domain, nonce, sig, ""))
		assert.False(t, VerifySignature(domain, nonce, sig, address+"00"))
	})
}

func TestVerifySignatureAcceptsBothVEncodings(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	digest := personalDigest(ChallengeMessage("d", "n"))
	raw, err := crypto.Sign(digest, key)
	require.NoError(t, err)

	// V as 0/1, straight out of crypto.Sign.
	assert.True(t, VerifySignature("d", "n", hexutil.Encode(raw), address))

	// V as 27/28, the form wallets emit.
	shifted := append([]byte{}, raw...)
	shifted[SignatureLength-1] += 27
	assert.True(t, VerifySignature("d", "n", hexutil.Encode(shifted), address))
}

func TestValidAddress(t *testing.T) {
	assert.True(t, ValidAddress("0x52908400098527886E0F7030069857D2E4169EE7"))
	assert.True(t, ValidAddress("0x52908400098527886e0f7030069857d2e4169ee7"))
	assert.False(t, ValidAddress("52908400098527886E0F7030069857D2E4169EE7"))
	assert.False(t, ValidAddress("0x5290"))
	assert.False(t, ValidAddress("0xZZ908400098527886E0F7030069857D2E4169EE7"))
	assert.False(t, ValidAddress(""))
}

func TestChallengeMessageDeterministic(t *testing.T) {
	a := ChallengeMessage("dom", "abc")
	assert.Equal(t, a, ChallengeMessage("dom", "abc"))
	assert.NotEqual(t, a, ChallengeMessage("dom", "abd"))
	assert.NotEqual(t, a, ChallengeMessage("other", "abc"))
}
