package registry

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/go-oidfed/certledger/storage/model"
)

// ComputeIdentifier derives the certificate identifier as
//
//	keccak256(holder ‖ issuer ‖ fileURL ‖ score ‖ issueDate ‖ expireDate ‖ sequence)
//
// with accounts as 20 bytes, score as 2 bytes and the remaining integers as
// 32 byte big endian words. The per-holder sequence makes two issuances with
// otherwise identical inputs hash differently.
func ComputeIdentifier(
	holder, issuer model.Account, fileURL string, score uint16, issueDate, expireDate int64, sequence uint64,
) model.Identifier {
	h := sha3.NewLegacyKeccak256()
	h.Write(holder.Bytes())
	h.Write(issuer.Bytes())
	h.Write([]byte(fileURL))
	var s [2]byte
	binary.BigEndian.PutUint16(s[:], score)
	h.Write(s[:])
	h.Write(word(uint64(issueDate)))
	h.Write(word(uint64(expireDate)))
	h.Write(word(sequence))
	var id model.Identifier
	copy(id[:], h.Sum(nil))
	return id
}

func word(v uint64) []byte {
	var w [32]byte
	binary.BigEndian.PutUint64(w[24:], v)
	return w[:]
}
