package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Account identifies a caller, owner, issuer or holder. Accounts carry no
// structure beyond equality.
type Account = common.Address

// Identifier is the key of a certificate within a holder's keyspace.
type Identifier = common.Hash

// NullAccount is the zero account. An owner set to NullAccount disables all
// owner-gated operations.
var NullAccount Account

// ParseAccount parses a hex encoded account, e.g. 0xb2248390842d3C4aCF1D8A893954Afc0EAc586e5
func ParseAccount(s string) (Account, error) {
	if !common.IsHexAddress(s) {
		return NullAccount, ValidationErrorFmt("invalid account '%s'", s)
	}
	return common.HexToAddress(s), nil
}

// ParseIdentifier parses a hex encoded 32 byte certificate identifier
func ParseIdentifier(s string) (Identifier, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return Identifier{}, ValidationErrorFmt("invalid certificate identifier '%s'", s)
	}
	return common.BytesToHash(b), nil
}
