package state

// Encrypter seals plaintexts for the group. Several plaintexts of one
// transaction are sealed together so their order on the ledger is fixed.
type Encrypter interface {
	Encrypt(plaintext []byte) ([]byte, error)
	EncryptAll(plaintexts [][]byte) ([][]byte, error)
}

// Encrypt seals the state.
func (n NextState[S]) Encrypt(enc Encrypter) ([]byte, error) {
	return enc.Encrypt(n.Marshal())
}

// EncryptAll seals states in order.
func EncryptAll[S State[S]](enc Encrypter, states []NextState[S]) ([][]byte, error) {
	pts := make([][]byte, len(states))
	for i, n := range states {
		pts[i] = n.Marshal()
	}
	return enc.EncryptAll(pts)
}
