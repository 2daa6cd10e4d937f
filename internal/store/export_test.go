package store

// FastScrypt lowers the scrypt cost for tests.
func FastScrypt() { scryptParams = func() (N, r, p int) { return 1 << 10, 8, 1 } }
