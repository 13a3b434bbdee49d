package crypto

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/drand/kyber"
	"github.com/drand/kyber/sign"
	"github.com/drand/kyber/util/random"
)

// KeyGroup bundles the three representations of a single replica identity: its short
// address, its public key, and (when held locally) its private signing key
type KeyGroup struct {
	Address    AddressI
	PublicKey  PublicKeyI
	PrivateKey PrivateKeyI
}

// NewKeyGroup() derives the address and public key that pair with a private key
func NewKeyGroup(pk PrivateKeyI) *KeyGroup {
	pub := pk.PublicKey()
	return &KeyGroup{
		Address:    pub.Address(),
		PublicKey:  pub,
		PrivateKey: pk,
	}
}

// NewED25519PrivateKeyFromBytes() creates a new PrivateKeyI interface from ED25519 bytes
func NewED25519PrivateKeyFromBytes(bz []byte) PrivateKeyI {
	return BytesToED25519Private(bz)
}

// NewED25519PublicKey() generates a fresh ED25519 keypair and returns its public half
func NewED25519PublicKey() (PublicKeyI, error) {
	pk, err := NewEd25519PrivateKey()
	if err != nil {
		return nil, err
	}
	return pk.PublicKey(), nil
}

// NewPublicKeyFromBytes() creates a new ED25519 PublicKeyI interface from bytes
func NewPublicKeyFromBytes(bz []byte) PublicKeyI {
	return NewPublicKeyED25519(bz)
}

// NewED25519AddressFromString() generates a fresh ED25519 keypair and returns its address
func NewED25519AddressFromString() (AddressI, error) {
	pk, err := NewED25519PublicKey()
	if err != nil {
		return nil, err
	}
	return pk.Address(), nil
}

// NewAddressFromBytes() wraps raw bytes as an AddressI
func NewAddressFromBytes(bz []byte) AddressI {
	if bz == nil {
		return nil
	}
	return NewAddress(bz)
}

// NewAddressFromString() decodes a hex string into an AddressI
func NewAddressFromString(hexString string) (AddressI, error) {
	bz, err := hex.DecodeString(hexString)
	if err != nil {
		return nil, err
	}
	return NewAddressFromBytes(bz), nil
}

// NewBLSPrivateKey() generates a fresh BLS12-381 private key, the default signing scheme
// backing partial and quorum certificates
func NewBLSPrivateKey() (PrivateKeyI, error) {
	privateKey, _ := newBLSScheme().NewKeyPair(random.New())
	return NewBLS12381PrivateKey(privateKey), nil
}

// NewBLSPrivateKeyFromString() decodes a hex-encoded BLS private key
func NewBLSPrivateKeyFromString(hexString string) (PrivateKeyI, error) {
	bz, err := hex.DecodeString(hexString)
	if err != nil {
		return nil, err
	}
	return NewBLSPrivateKeyFromBytes(bz)
}

// NewBLSPrivateKeyFromBytes() decodes a raw BLS scalar into a private key
func NewBLSPrivateKeyFromBytes(bz []byte) (PrivateKeyI, error) {
	keyCopy := newBLSSuite().G2().Scalar()
	if err := keyCopy.UnmarshalBinary(bz); err != nil {
		return nil, err
	}
	return &BLS12381PrivateKey{
		Scalar: keyCopy,
		scheme: newBLSScheme(),
	}, nil
}

// NewBLSPublicKey() generates a fresh BLS12-381 keypair and returns its public half
func NewBLSPublicKey() (PublicKeyI, error) {
	pk, err := NewBLSPrivateKey()
	if err != nil {
		return nil, err
	}
	return pk.PublicKey(), nil
}

// NewBLSPublicKeyFromString() decodes a hex-encoded BLS public key
func NewBLSPublicKeyFromString(hexString string) (PublicKeyI, error) {
	bz, err := hex.DecodeString(hexString)
	if err != nil {
		return nil, err
	}
	return NewBLSPublicKeyFromBytes(bz)
}

// NewBLSPublicKeyFromBytes() decodes a raw BLS curve point into a public key
func NewBLSPublicKeyFromBytes(bz []byte) (PublicKeyI, error) {
	point, err := NewBLSPointFromBytes(bz)
	if err != nil {
		return nil, err
	}
	return &BLS12381PublicKey{
		Point:  point,
		scheme: newBLSScheme(),
	}, nil
}

// NewBLSPointFromBytes() decodes a raw G1 curve point, the representation shared by all BLS public keys
func NewBLSPointFromBytes(bz []byte) (kyber.Point, error) {
	point := newBLSSuite().G1().Point()
	if err := point.UnmarshalBinary(bz); err != nil {
		return nil, err
	}
	return point, nil
}

// NewMultiBLSFromPoints() builds an aggregate public key over a fixed committee of BLS points,
// optionally restoring a previously observed signer bitmap
func NewMultiBLSFromPoints(publicKeys []kyber.Point, bitmap []byte) (MultiPublicKeyI, error) {
	mask, err := sign.NewMask(newBLSSuite(), publicKeys, nil)
	if err != nil {
		return nil, err
	}
	if bitmap != nil {
		if err = mask.SetMask(bitmap); err != nil {
			return nil, err
		}
	}
	return NewBLSMultiPublicKey(mask), nil
}

// NewMultiBLS() builds an aggregate public key from a committee's raw public key bytes
func NewMultiBLS(publicKeys [][]byte, bitmap []byte) (MultiPublicKeyI, error) {
	var points []kyber.Point
	for _, bz := range publicKeys {
		point, err := NewBLSPointFromBytes(bz)
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return NewMultiBLSFromPoints(points, bitmap)
}

// NewBLSPrivateKeyFromFile() loads a hex-encoded BLS private key from disk
func NewBLSPrivateKeyFromFile(filepath string) (PrivateKeyI, error) {
	hexBytes, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	bz, err := hex.DecodeString(string(hexBytes))
	if err != nil {
		return nil, err
	}
	return NewBLSPrivateKeyFromBytes(bz)
}

// PrivateKeyToFile() persists a private key to disk as a hex string
func PrivateKeyToFile(key PrivateKeyI, filepath string) error {
	return os.WriteFile(filepath, []byte(hex.EncodeToString(key.Bytes())), 0777)
}

// NewED25519PrivateKeyFromFile() loads a hex-encoded ED25519 private key from disk
func NewED25519PrivateKeyFromFile(filepath string) (PrivateKeyI, error) {
	hexBytes, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	bz, err := hex.DecodeString(string(hexBytes))
	if err != nil {
		return nil, err
	}
	if len(bz) != Ed25519PrivKeySize {
		return nil, fmt.Errorf("wrong private key size")
	}
	return NewED25519PrivateKeyFromBytes(bz), nil
}

// NewPrivateKeyFromBytes() dispatches to the BLS or ED25519 decoder based on byte length
func NewPrivateKeyFromBytes(bz []byte) (PrivateKeyI, error) {
	if len(bz) == BLS12381PrivKeySize {
		return NewBLSPrivateKeyFromBytes(bz)
	}
	return NewED25519PrivateKeyFromBytes(bz), nil
}

// NewPrivateKeyFromString() dispatches to the BLS or ED25519 decoder based on the decoded byte length
func NewPrivateKeyFromString(hexString string) (PrivateKeyI, error) {
	bz, err := hex.DecodeString(hexString)
	if err != nil {
		return nil, err
	}
	return NewPrivateKeyFromBytes(bz)
}

// NewPublicKeyFromString() dispatches to the BLS or ED25519 decoder based on the decoded byte length
func NewPublicKeyFromString(hexString string) (PublicKeyI, error) {
	bz, err := hex.DecodeString(hexString)
	if err != nil {
		return nil, err
	}
	switch len(bz) {
	case BLS12381PubKeySize:
		return NewBLSPublicKeyFromBytes(bz)
	default:
		return NewPublicKeyED25519(bz), nil
	}
}
