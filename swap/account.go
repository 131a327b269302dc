package swap

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/warp/swap-engine/ledger"
)

// reserveTag keys reserve derivation so no other hash input in the system
// can produce the same account.
var reserveTag = []byte("modlswap")

// ReserveAccount derives the account that holds pool id's reserves:
// "swap:" + hex(blake2b-256(tag || be64(id))).
//
// The result always carries ledger.ReservedPrefix, which callers cannot
// authenticate as.
func ReserveAccount(id ID) ledger.AccountID {
	buf := make([]byte, 0, len(reserveTag)+8)
	buf = append(buf, reserveTag...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(id))
	sum := blake2b.Sum256(buf)
	return ledger.AccountID(ledger.ReservedPrefix + hex.EncodeToString(sum[:]))
}
