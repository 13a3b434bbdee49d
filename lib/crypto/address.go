package crypto

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
)

// Address is the short, fixed-length identifier derived from a replica's public key
type Address []byte

var _ AddressI = &Address{}

const (
	AddressSize = 20
)

// NewAddress() constructs an Address from raw bytes
func NewAddress(bz []byte) *Address {
	a := Address(bz)
	return &a
}

func (a *Address) MarshalJSON() ([]byte, error) { return json.Marshal(a.String()) }

func (a *Address) UnmarshalJSON(b []byte) (err error) {
	var s string
	if err = json.Unmarshal(b, &s); err != nil {
		return err
	}
	bz, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*a = bz
	return nil
}

func (a *Address) Bytes() []byte          { return (*a)[:] }
func (a *Address) String() string         { return hex.EncodeToString(a.Bytes()) }
func (a *Address) Equals(e AddressI) bool { return bytes.Equal(a.Bytes(), e.Bytes()) }

// Marshal() returns the raw address bytes, satisfying the AddressI encoding contract
func (a *Address) Marshal() ([]byte, error) { return a.Bytes(), nil }
