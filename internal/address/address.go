// internal/address/address.go
package address

import (
	"crypto/ed25519"
	"crypto/sha256"
	"database/sql/driver"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// Size is the byte length of identities and derived record addresses.
const Size = 32

const (
	campaignSeed     = "campaign"
	contributionSeed = "contribution"
	derivationDomain = "crowdfund/derived-address/v1"
)

// Address identifies an account (an ed25519 public key) or a record whose
// location is derived from stable inputs.
type Address [Size]byte

// Zero is the unset address. It is never a valid signer.
var Zero Address

func (a Address) String() string {
	return base58.Encode(a[:])
}

func (a Address) IsZero() bool {
	return a == Zero
}

// PublicKey returns the address bytes as an ed25519 verification key.
func (a Address) PublicKey() ed25519.PublicKey {
	key := make([]byte, Size)
	copy(key, a[:])
	return ed25519.PublicKey(key)
}

func FromPublicKey(pub ed25519.PublicKey) (Address, error) {
	var a Address
	if len(pub) != ed25519.PublicKeySize {
		return a, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	copy(a[:], pub)
	return a, nil
}

// Parse decodes a base58 address.
func Parse(s string) (Address, error) {
	var a Address
	if s == "" {
		return a, fmt.Errorf("address is empty")
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("decode address %q: %w", s, err)
	}
	if len(raw) != Size {
		return a, fmt.Errorf("address %q must decode to %d bytes, got %d", s, Size, len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value stores the address in its base58 text form.
func (a Address) Value() (driver.Value, error) {
	return a.String(), nil
}

func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into address", src)
	}
}

// Derive hashes length-prefixed seeds into an address. Distinct seed lists
// never share a preimage, so two different inputs cannot collide by
// concatenation.
func Derive(seeds ...[]byte) Address {
	h := sha256.New()
	h.Write([]byte(derivationDomain))
	var prefix [4]byte
	for _, seed := range seeds {
		binary.BigEndian.PutUint32(prefix[:], uint32(len(seed)))
		h.Write(prefix[:])
		h.Write(seed)
	}
	var a Address
	copy(a[:], h.Sum(nil))
	return a
}

// Campaign returns the address of the campaign a creator registers under title.
func Campaign(creator Address, title string) Address {
	return Derive([]byte(campaignSeed), creator[:], []byte(title))
}

// Contribution returns the address of contributor's record in campaign.
func Contribution(campaign, contributor Address) Address {
	return Derive([]byte(contributionSeed), campaign[:], contributor[:])
}
