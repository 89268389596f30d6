package tx

import (
	"encoding/json"

	"github.com/calehh/ballot-app/types"
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/ethereum/go-ethereum/common"
)

// BallotTx is the signed envelope of every ledger call. The caller of the
// call is the owner of PubKey; payloads never name their own caller.
type BallotTx struct {
	Version uint8        `json:"version"`
	Type    BallotTxType `json:"type"`
	PubKey  []byte       `json:"pubkey"`
	Tx      any          `json:"tx"`
	Sig     [][]byte     `json:"sig"`
}

type GrantRightTx struct {
	Voter common.Address `json:"voter"`
}

type DelegateTx struct {
	To common.Address `json:"to"`
}

type VoteTx struct {
	Proposal int64 `json:"proposal"`
}

type ballotTxTmpl[Tx any] struct {
	Version uint8        `json:"version"`
	Type    BallotTxType `json:"type"`
	PubKey  []byte       `json:"pubkey"`
	Tx      Tx           `json:"tx"`
	Sig     [][]byte     `json:"sig"`
}

func NewBallotTx(typ BallotTxType, pubkey []byte, payload any) *BallotTx {
	return &BallotTx{
		Version: BallotTxVersion1,
		Type:    typ,
		PubKey:  pubkey,
		Tx:      payload,
	}
}

// SigData is the byte string the caller signs. Binding the chain id keeps a
// signature from being replayed on another ballot.
func (tx *BallotTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = [][]byte{ext}
	dat, err = json.Marshal(ntx)
	return
}

// Sign sets the signature of tx using sign over SigData(chainId).
func (tx *BallotTx) Sign(chainId string, sign func([]byte) ([]byte, error)) (err error) {
	dat, err := tx.SigData([]byte(chainId))
	if err != nil {
		return
	}
	sig, err := sign(dat)
	if err != nil {
		return
	}
	tx.Sig = [][]byte{sig}
	return
}

// Verify checks the envelope signature and returns the authenticated caller.
func (tx *BallotTx) Verify(chainId string) (caller common.Address, err error) {
	if len(tx.PubKey) != ed25519.PubKeySize {
		err = ErrTxPubKeyInvalid
		return
	}
	if len(tx.Sig) != 1 {
		err = ErrTxSigInvalid
		return
	}
	dat, err := tx.SigData([]byte(chainId))
	if err != nil {
		return
	}
	if !ed25519.PubKey(tx.PubKey).VerifySignature(dat, tx.Sig[0]) {
		err = ErrTxSigInvalid
		return
	}
	caller = tx.Caller()
	return
}

// Caller is the participant the envelope speaks for. It is only meaningful
// after Verify succeeded.
func (tx *BallotTx) Caller() common.Address {
	if len(tx.PubKey) != ed25519.PubKeySize {
		return common.Address{}
	}
	return types.AddressFromPubKey(tx.PubKey)
}

func parseBallotTxType(dat []byte) BallotTxType {
	var tx struct {
		Type BallotTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return BallotTxTypeUnknown
	}
	return tx.Type
}

func unmarshalBallotTx[Tx any](dat []byte) (btx *BallotTx, err error) {
	var txt ballotTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	if txt.Version != BallotTxVersion1 {
		err = ErrUnsupportedTxVersion
		return
	}
	btx = new(BallotTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.PubKey = txt.PubKey
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalBallotTx(dat []byte) (btx *BallotTx, err error) {
	tp := parseBallotTxType(dat)
	switch tp {
	case BallotTxTypeGrantRight:
		return unmarshalBallotTx[GrantRightTx](dat)
	case BallotTxTypeDelegate:
		return unmarshalBallotTx[DelegateTx](dat)
	case BallotTxTypeVote:
		return unmarshalBallotTx[VoteTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalBallotTx(btx *BallotTx) (dat []byte, err error) {
	return json.Marshal(btx)
}
