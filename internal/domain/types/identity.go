package types

// Identity is the enclave's long-term Ed25519 signing key. It signs every
// transaction the enclave hands to the ledger.
type Identity struct {
	EdPub  Ed25519Public  `json:"edpub"`
	EdPriv Ed25519Private `json:"edpriv"`
}

// KeyPackage is an X25519 init key that lets an existing member add this
// enclave to the group. The public half is published; the private half
// becomes the leaf key once the Add is processed.
type KeyPackage struct {
	Pub  X25519Public  `json:"pub"`
	Priv X25519Private `json:"priv"`
}

// AccessRight proves control of a user key: Sig is an Ed25519 signature of
// Challenge under PubKey.
type AccessRight struct {
	Sig       []byte        `json:"sig"`
	PubKey    Ed25519Public `json:"pubkey"`
	Challenge [32]byte      `json:"challenge"`
}

// Account is a user signing key held by the CLI. It never enters the
// enclave; it only signs access rights.
type Account struct {
	Name   string         `json:"name"`
	EdPub  Ed25519Public  `json:"edpub"`
	EdPriv Ed25519Private `json:"edpriv"`
}
