package crypto

import (
	"fmt"
	"os"

	"github.com/calehh/ballot-app/types"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	"github.com/cometbft/cometbft/privval"
	"github.com/ethereum/go-ethereum/common"
)

// PV is a participant key read from a CometBFT private validator key file.
// The validator key doubles as the chairperson key on a single node chain.
type PV struct {
	privateKey crypto.PrivKey
	publicKey  crypto.PubKey
}

func LoadFilePV(keyFilePath string) (*PV, error) {
	keyJSONBytes, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, err
	}
	pvKey := privval.FilePVKey{}
	err = cmtjson.Unmarshal(keyJSONBytes, &pvKey)
	if err != nil {
		return nil, fmt.Errorf("error reading PrivValidator key from %v: %w", keyFilePath, err)
	}
	if _, ok := pvKey.PrivKey.(ed25519.PrivKey); !ok {
		return nil, fmt.Errorf("key in %v is not ed25519", keyFilePath)
	}

	return &PV{
		privateKey: pvKey.PrivKey,
		publicKey:  pvKey.PubKey,
	}, nil
}

// GenFilePV creates a fresh ed25519 key and writes it to keyFilePath in the
// private validator key format.
func GenFilePV(keyFilePath string) (*PV, error) {
	if _, err := os.Stat(keyFilePath); err == nil {
		return nil, fmt.Errorf("key file %v already exists", keyFilePath)
	}
	priv := ed25519.GenPrivKey()
	pvKey := privval.FilePVKey{
		Address: priv.PubKey().Address(),
		PubKey:  priv.PubKey(),
		PrivKey: priv,
	}
	dat, err := cmtjson.MarshalIndent(pvKey, "", "  ")
	if err != nil {
		return nil, err
	}
	if err = os.WriteFile(keyFilePath, dat, 0o600); err != nil {
		return nil, err
	}
	return &PV{
		privateKey: priv,
		publicKey:  priv.PubKey(),
	}, nil
}

func (k *PV) PublicKey() []byte {
	return k.publicKey.Bytes()
}

// Address is the participant identity of the key on the ledger.
func (k *PV) Address() common.Address {
	return types.AddressFromPubKey(k.publicKey.Bytes())
}

func (k *PV) Sign(data []byte) ([]byte, error) {
	return k.privateKey.Sign(data)
}
