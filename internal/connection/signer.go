// File: internal/connection/signer.go
package connection

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// Signer holds the privileged key used for mitigation transactions.
// End-user keys are never loaded here.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

// LoadSigner reads a hex-encoded private key from a file
func LoadSigner(keyFile string, networkID int) (*Signer, error) {
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeConfiguration, "Failed to read signer key file", err.Error())
	}

	hexKey := strings.TrimSpace(string(data))
	hexKey = strings.TrimPrefix(hexKey, "0x")

	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeConfiguration, "Invalid signer private key", err.Error())
	}

	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: big.NewInt(int64(networkID)),
	}, nil
}

// Address returns the signer's account address
func (s *Signer) Address() common.Address {
	return s.address
}

// SignedTransaction builds and signs a legacy transaction for a
// contract call. RSK does not support EIP-1559 fee-market transactions.
func (s *Signer) SignedTransaction(ctx context.Context, client *ethclient.Client, to common.Address, data []byte) (*types.Transaction, error) {
	nonce, err := client.PendingNonceAt(ctx, s.address)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeTransientIO, "Failed to get signer nonce", err.Error())
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeTransientIO, "Failed to get gas price", err.Error())
	}

	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From: s.address,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeBlockchain, "Gas estimation failed", err.Error())
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)

	signed, err := types.SignTx(tx, types.NewEIP155Signer(s.chainID), s.key)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeInternal, "Failed to sign transaction", err.Error())
	}

	return signed, nil
}
