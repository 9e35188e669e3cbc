package crypto

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressPrefix defines the different types of human-readable address prefixes.
type AddressPrefix string

// ZVPrefix is the prefix used for Zendvo account identities.
const ZVPrefix AddressPrefix = "zv"

// Address represents a 20-byte account identity with a bech32 prefix.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

func NewAddress(prefix AddressPrefix, b []byte) Address {
	if len(b) != 20 {
		panic("address must be 20 bytes long")
	}
	return Address{prefix: prefix, bytes: append([]byte(nil), b...)}
}

func (a Address) String() string {
	if len(a.bytes) == 0 {
		return ""
	}
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	return append([]byte(nil), a.bytes...)
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// IsZero reports whether the address carries no identity.
func (a Address) IsZero() bool {
	return len(a.bytes) == 0
}

// Equal reports whether two addresses carry the same prefix and payload.
func (a Address) Equal(other Address) bool {
	return a.prefix == other.prefix && bytes.Equal(a.bytes, other.bytes)
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != 20 {
		return Address{}, fmt.Errorf("address payload must be 20 bytes, got %d", len(conv))
	}
	return NewAddress(AddressPrefix(prefix), conv), nil
}

// --- Oracle claim keys ---

const (
	// OracleAuthKeySize is the byte length of the oracle's ed25519 public key.
	OracleAuthKeySize = ed25519.PublicKeySize
	// ClaimProofSize is the byte length of a detached claim signature.
	ClaimProofSize = ed25519.SignatureSize
)

// OracleKey holds the ed25519 signing key a trusted oracle uses to attest that
// a claimant corresponds to a hashed out-of-band recipient identifier. Only
// test harnesses and oracle-side tooling hold the private half; the engine
// stores the public key alone.
type OracleKey struct {
	priv ed25519.PrivateKey
}

// GenerateOracleKey creates a fresh oracle signing key.
func GenerateOracleKey() (*OracleKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate oracle key: %w", err)
	}
	return &OracleKey{priv: priv}, nil
}

// AuthKey returns the 32-byte public key distributed to the engine.
func (k *OracleKey) AuthKey() [OracleAuthKeySize]byte {
	var out [OracleAuthKeySize]byte
	copy(out[:], k.priv.Public().(ed25519.PublicKey))
	return out
}

// SignClaim produces the detached proof binding a claimant identity to a
// recipient identifier hash.
func (k *OracleKey) SignClaim(claimant Address, recipientProofHash string) [ClaimProofSize]byte {
	var out [ClaimProofSize]byte
	copy(out[:], ed25519.Sign(k.priv, ClaimPayload(claimant, recipientProofHash)))
	return out
}

// ClaimPayload renders the canonical signed payload: the claimant's bech32
// serialization followed by the raw recipient identifier hash bytes.
func ClaimPayload(claimant Address, recipientProofHash string) []byte {
	addr := claimant.String()
	payload := make([]byte, 0, len(addr)+len(recipientProofHash))
	payload = append(payload, addr...)
	payload = append(payload, recipientProofHash...)
	return payload
}

// VerifyClaim checks the detached signature over the canonical claim payload
// under the configured oracle auth key.
func VerifyClaim(authKey [OracleAuthKeySize]byte, claimant Address, recipientProofHash string, proof [ClaimProofSize]byte) bool {
	return ed25519.Verify(ed25519.PublicKey(authKey[:]), ClaimPayload(claimant, recipientProofHash), proof[:])
}
