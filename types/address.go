package types

import (
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/ethereum/go-ethereum/common"
)

// AddressFromPubKey derives the participant identity of an ed25519 key.
func AddressFromPubKey(pk []byte) common.Address {
	return common.BytesToAddress(ed25519.PubKey(pk).Address())
}
