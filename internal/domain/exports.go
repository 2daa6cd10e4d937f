package domain

import (
	interfaces "sealedstate/internal/domain/interfaces"
	types "sealedstate/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	RosterIndex    = types.RosterIndex
	UserAddress    = types.UserAddress
	LockParam      = types.LockParam
	Fingerprint    = types.Fingerprint
	Identity       = types.Identity
	Account        = types.Account
	KeyPackage     = types.KeyPackage
	AccessRight    = types.AccessRight
	EntryKind      = types.EntryKind
	Entry          = types.Entry
	Notification   = types.Notification
	InitStateTx    = types.InitStateTx
	InstructionTx  = types.InstructionTx
	HandshakeTx    = types.HandshakeTx
	JoinGroupTx    = types.JoinGroupTx
	X25519Public   = types.X25519Public
	X25519Private  = types.X25519Private
	Ed25519Public  = types.Ed25519Public
	Ed25519Private = types.Ed25519Private
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	KeyedStore        = interfaces.KeyedStore
	IdentityStore     = interfaces.IdentityStore
	KeyPackageStore   = interfaces.KeyPackageStore
	Ledger            = interfaces.Ledger
	IdentityService   = interfaces.IdentityService
	KeyPackageService = interfaces.KeyPackageService
	Ingestor          = interfaces.Ingestor
)

const (
	AddressSize     = types.AddressSize
	LockParamSize   = types.LockParamSize
	EntryHandshake  = types.EntryHandshake
	EntryCiphertext = types.EntryCiphertext
)
