package tx

import (
	"errors"
)

type BallotTxType uint8

const (
	BallotTxTypeUnknown    BallotTxType = 0
	BallotTxTypeGrantRight BallotTxType = 1
	BallotTxTypeDelegate   BallotTxType = 2
	BallotTxTypeVote       BallotTxType = 3
)

func (t BallotTxType) String() string {
	switch t {
	case BallotTxTypeGrantRight:
		return "grant_right"
	case BallotTxTypeDelegate:
		return "delegate"
	case BallotTxTypeVote:
		return "vote"
	default:
		return "unknown"
	}
}

const BallotTxVersion1 uint8 = 1

var (
	ErrInvalidTx            = errors.New("invalid tx")
	ErrUnsupportedTxType    = errors.New("unsupported tx type")
	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
	ErrTxPubKeyInvalid      = errors.New("public key invalid")
	ErrTxSigInvalid         = errors.New("signature invalid")
)
