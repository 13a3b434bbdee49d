package crypto

// PublicKeyI is the common contract for all public key implementations (ED25519, BLS12-381)
type PublicKeyI interface {
	Address() AddressI
	Bytes() []byte
	VerifyBytes(msg []byte, sig []byte) bool
	String() string
	Equals(PublicKeyI) bool
}

// PrivateKeyI is the common contract for all private key implementations (ED25519, BLS12-381)
type PrivateKeyI interface {
	Bytes() []byte
	Sign(msg []byte) []byte
	PublicKey() PublicKeyI
	String() string
	Equals(PrivateKeyI) bool
}

// AddressI is the common contract for the short identifier derived from a public key
type AddressI interface {
	Marshal() ([]byte, error)
	MarshalJSON() ([]byte, error)
	UnmarshalJSON([]byte) error
	Bytes() []byte
	String() string
	Equals(AddressI) bool
}

// MultiPublicKeyI is the common contract for an aggregate public key over a fixed committee,
// backing quorum certificates (the aggregated signature of a majority); partial certificates
// are signed and verified with a single signer's key instead
type MultiPublicKeyI interface {
	AggregateSignatures() ([]byte, error)
	VerifyBytes(msg, aggregatedSignature []byte) bool
	AddSigner(signature []byte, index int) error
	SignerEnabledAt(i int) (bool, error)
	PublicKeys() (keys []PublicKeyI)
	SetBitmap(bm []byte) error
	Bitmap() []byte
	Copy() MultiPublicKeyI
	Reset()
}
