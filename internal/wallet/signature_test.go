package wallet

import (
	"crypto/ed25519"
	"encoding/hex"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucra-chat/internal/types"
)

// signPersonal signs like a browser wallet's personal_sign (V = 27/28)
func signPersonal(t *testing.T, message string) (address, signature string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	sig, err := crypto.Sign(personalHash(message), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	return crypto.PubkeyToAddress(key.PublicKey).Hex(), hexutil.Encode(sig)
}

func TestVerifySignature_EVM(t *testing.T) {
	msg := LoginMessage("0xabc", 1700000000)
	address, sig := signPersonal(t, msg)

	canonical, err := VerifySignature(address, msg, sig)
	require.NoError(t, err)
	assert.Equal(t, sig, canonical)

	_, err = VerifySignature(NormalizeAddress(address), msg, sig[2:])
	assert.NoError(t, err, "lower-case address and unprefixed hex")

	_, err = VerifySignature(address, msg+" ", sig)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	other, _ := signPersonal(t, msg)
	_, err = VerifySignature(other, msg, sig)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = VerifySignature(address, msg, "0x1234")
	assert.ErrorIs(t, err, ErrInvalidSignature)
	_, err = VerifySignature(address, msg, "zz")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignature_EVMEncodingsShareCanonicalForm(t *testing.T) {
	msg := LoginMessage("0xabc", 1700000000)
	address, sig := signPersonal(t, msg)

	raw, err := hexutil.Decode(sig)
	require.NoError(t, err)
	raw[crypto.RecoveryIDOffset] -= 27

	variants := map[string]string{
		"as signed":       sig,
		"no prefix":       strings.TrimPrefix(sig, "0x"),
		"upper-case hex":  "0x" + strings.ToUpper(sig[2:]),
		"upper-case 0X":   "0X" + sig[2:],
		"recovery id 0/1": hexutil.Encode(raw),
	}
	for name, variant := range variants {
		t.Run(name, func(t *testing.T) {
			canonical, err := VerifySignature(address, msg, variant)
			require.NoError(t, err)
			assert.Equal(t, sig, canonical)
		})
	}
}

func TestVerifySignature_EVMRejectsHighS(t *testing.T) {
	msg := LoginMessage("0xabc", 1700000000)
	address, sig := signPersonal(t, msg)

	raw, err := hexutil.Decode(sig)
	require.NoError(t, err)

	// (r, n-s, v^1) recovers the same key
	s := new(big.Int).SetBytes(raw[32:64])
	highS := new(big.Int).Sub(crypto.S256().Params().N, s)
	twin := make([]byte, crypto.SignatureLength)
	copy(twin, raw[:32])
	highS.FillBytes(twin[32:64])
	twin[crypto.RecoveryIDOffset] = 27 + ((raw[crypto.RecoveryIDOffset] - 27) ^ 1)

	_, err = VerifySignature(address, msg, hexutil.Encode(twin))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignature_Solana(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	address := base58.Encode(pub)
	msg := LoginMessage(address, 1700000000)
	sig := ed25519.Sign(priv, []byte(msg))

	canonical, err := VerifySignature(address, msg, base58.Encode(sig))
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(sig), canonical)

	canonical, err = VerifySignature(address, msg, hex.EncodeToString(sig))
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(sig), canonical, "hex input maps to the base58 form")

	_, err = VerifySignature(address, "tampered", base58.Encode(sig))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignature_UnknownWallet(t *testing.T) {
	_, err := VerifySignature("not-a-wallet", "m", "s")
	assert.ErrorIs(t, err, ErrUnsupportedWallet)
}

func TestDetectWalletType(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	assert.Equal(t, types.WalletEVM, DetectWalletType("0x52908400098527886E0F7030069857D2E4169EE7"))
	assert.Equal(t, types.WalletSolana, DetectWalletType(base58.Encode(pub)))
	assert.Equal(t, types.WalletUnknown, DetectWalletType("0x1234"))
	assert.Equal(t, types.WalletUnknown, DetectWalletType("alice"))
}

func TestNormalizeAddress(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	sol := base58.Encode(pub)

	assert.Equal(t, "0x52908400098527886e0f7030069857d2e4169ee7", NormalizeAddress(" 0x52908400098527886E0F7030069857D2E4169EE7 "))
	assert.Equal(t, sol, NormalizeAddress(sol))
}

func TestLoginMessage(t *testing.T) {
	assert.Equal(t, `{"address":"0xabc","timestamp":1700000000}`, LoginMessage("0xabc", 1700000000))
}

func TestCheckTimestamp(t *testing.T) {
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name    string
		ts      int64
		wantErr bool
	}{
		{name: "now", ts: now.Unix()},
		{name: "59 minutes ago", ts: now.Add(-59 * time.Minute).Unix()},
		{name: "two hours ago", ts: now.Add(-2 * time.Hour).Unix(), wantErr: true},
		{name: "four minutes ahead", ts: now.Add(4 * time.Minute).Unix()},
		{name: "ten minutes ahead", ts: now.Add(10 * time.Minute).Unix(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTimestamp(tt.ts, now, time.Hour, 5*time.Minute)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMessageExpired)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
