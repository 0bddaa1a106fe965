// Package ledger wraps the EduChain course-registry contract: enroll and
// completeCourse transactions, receipt polling and the read calls the
// settlement layer uses to guard against duplicate submission.
package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const eduChainABI = `[
	{"type":"function","name":"enroll","stateMutability":"nonpayable","inputs":[{"name":"courseId","type":"uint256"},{"name":"learner","type":"address"}],"outputs":[]},
	{"type":"function","name":"completeCourse","stateMutability":"nonpayable","inputs":[{"name":"courseId","type":"uint256"},{"name":"learner","type":"address"},{"name":"score","type":"uint8"},{"name":"flags","type":"uint8"}],"outputs":[]},
	{"type":"function","name":"isEnrolled","stateMutability":"view","inputs":[{"name":"courseId","type":"uint256"},{"name":"learner","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getCompletion","stateMutability":"view","inputs":[{"name":"courseId","type":"uint256"},{"name":"learner","type":"address"}],"outputs":[{"name":"completed","type":"bool"},{"name":"score","type":"uint8"},{"name":"flags","type":"uint8"}]}
]`

const (
	defaultGasLimit  = 300000
	receiptPollEvery = 3 * time.Second
)

// Receipt is the confirmed outcome of a broadcast transaction
type Receipt struct {
	TxHash      string
	Success     bool
	GasUsed     uint64
	BlockNumber uint64
}

// Completion mirrors the on-chain completion record for one (course, learner)
type Completion struct {
	Completed bool
	Score     uint8
	Flags     uint8
}

// Client submits transactions to the EduChain contract from the platform's
// settlement key
type Client struct {
	rpc      *ethclient.Client
	abi      abi.ABI
	contract common.Address
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
	gasLimit uint64
}

// NewClient dials the chain RPC and prepares the signing key
func NewClient(rpcURL, contractAddress, privateKeyHex string, chainID int64) (*Client, error) {
	if contractAddress == "" || privateKeyHex == "" {
		return nil, errors.New("ledger client requires a contract address and a private key")
	}

	rpc, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain rpc: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(eduChainABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid ledger private key: %w", err)
	}

	return &Client{
		rpc:      rpc,
		abi:      parsed,
		contract: common.HexToAddress(contractAddress),
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  big.NewInt(chainID),
		gasLimit: defaultGasLimit,
	}, nil
}

// Enroll broadcasts an enroll transaction and returns its hash immediately
func (c *Client) Enroll(ctx context.Context, courseID uint, learner string) (string, error) {
	data, err := c.abi.Pack("enroll", new(big.Int).SetUint64(uint64(courseID)), common.HexToAddress(learner))
	if err != nil {
		return "", fmt.Errorf("failed to pack enroll call: %w", err)
	}
	return c.sendTransaction(ctx, data)
}

// CompleteCourse broadcasts a completeCourse transaction with the settled
// score and flag bitmask and returns its hash immediately
func (c *Client) CompleteCourse(ctx context.Context, courseID uint, learner string, score uint8, flags uint8) (string, error) {
	data, err := c.abi.Pack("completeCourse",
		new(big.Int).SetUint64(uint64(courseID)), common.HexToAddress(learner), score, flags)
	if err != nil {
		return "", fmt.Errorf("failed to pack completeCourse call: %w", err)
	}
	return c.sendTransaction(ctx, data)
}

// IsEnrolled reads the on-chain enrollment state for a (course, learner) pair
func (c *Client) IsEnrolled(ctx context.Context, courseID uint, learner string) (bool, error) {
	out, err := c.call(ctx, "isEnrolled", new(big.Int).SetUint64(uint64(courseID)), common.HexToAddress(learner))
	if err != nil {
		return false, err
	}
	enrolled, ok := out[0].(bool)
	if !ok {
		return false, errors.New("unexpected isEnrolled return type")
	}
	return enrolled, nil
}

// CompletionOnChain reads the on-chain completion record for a
// (course, learner) pair
func (c *Client) CompletionOnChain(ctx context.Context, courseID uint, learner string) (*Completion, error) {
	out, err := c.call(ctx, "getCompletion", new(big.Int).SetUint64(uint64(courseID)), common.HexToAddress(learner))
	if err != nil {
		return nil, err
	}
	if len(out) != 3 {
		return nil, errors.New("unexpected getCompletion return arity")
	}
	completion := &Completion{}
	completion.Completed, _ = out[0].(bool)
	completion.Score, _ = out[1].(uint8)
	completion.Flags, _ = out[2].(uint8)
	return completion, nil
}

// WaitReceipt polls for the transaction receipt until the context expires.
// Canceling the context abandons the wait, never the transaction itself.
func (c *Client) WaitReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(receiptPollEvery)
	defer ticker.Stop()

	for {
		receipt, err := c.rpc.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return &Receipt{
				TxHash:      txHash,
				Success:     receipt.Status == types.ReceiptStatusSuccessful,
				GasUsed:     receipt.GasUsed,
				BlockNumber: receipt.BlockNumber.Uint64(),
			}, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to fetch receipt for %s: %w", txHash, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// sendTransaction signs and broadcasts a legacy transaction to the contract
func (c *Client) sendTransaction(ctx context.Context, data []byte) (string, error) {
	nonce, err := c.rpc.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice, err := c.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Value:    big.NewInt(0),
		Gas:      c.gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.rpc.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	return signed.Hash().Hex(), nil
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}
	out, err := c.rpc.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	return c.abi.Unpack(method, out)
}
