// Package evm implements the on-chain collaborator contracts against an EVM
// JSON-RPC endpoint using go-ethereum.
package evm

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
	"go.uber.org/zap"

	"github.com/guardianswap/bridge-middleware/pkg/chainio"
)

// contractABI covers the bridge and swap entry points the middleware calls.
const contractABI = `[
  {"type":"function","name":"initiateBridge","inputs":[{"name":"sourceChain","type":"string"},{"name":"targetChain","type":"string"},{"name":"amount","type":"string"},{"name":"recipient","type":"address"}]},
  {"type":"function","name":"validateBridge","inputs":[{"name":"orderId","type":"string"}]},
  {"type":"function","name":"completeBridge","inputs":[{"name":"orderId","type":"string"},{"name":"recipient","type":"address"}]},
  {"type":"function","name":"createSwapOrder","inputs":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"sealedAmountIn","type":"string"},{"name":"sealedMinAmountOut","type":"string"},{"name":"deadline","type":"uint256"}]},
  {"type":"function","name":"executeSwap","inputs":[{"name":"orderId","type":"string"}]}
]`

const receiptPollInterval = 2 * time.Second

// Client wraps an ethclient connection plus the signing key. It implements
// Session, Submitter and Waiter for the orchestration core.
type Client struct {
	eth     *ethclient.Client
	abi     abi.ABI
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
	logger  *zap.Logger
}

// Dial connects to the RPC endpoint and prepares the signer. The private key
// is hex encoded without the 0x prefix.
func Dial(ctx context.Context, rpcURL, privateKeyHex string, logger *zap.Logger) (*Client, error) {
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}

	c := &Client{
		eth:     eth,
		abi:     parsed,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
		logger:  logger,
	}
	logger.Info("EVM client connected",
		zap.String("rpc", rpcURL),
		zap.String("address", c.address.Hex()),
		zap.String("chain_id", chainID.String()))
	return c, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// Connected reports whether a signing session is available.
func (c *Client) Connected() bool {
	return c.eth != nil && c.key != nil
}

// Address returns the signer address.
func (c *Client) Address() (common.Address, bool) {
	if !c.Connected() {
		return common.Address{}, false
	}
	return c.address, true
}

// Submit packs, signs and broadcasts the call, returning the pending
// transaction handle once the node has accepted it.
func (c *Client) Submit(ctx context.Context, call chainio.Call) (chainio.PendingTx, error) {
	data, err := c.abi.Pack(call.Method, call.Args...)
	if err != nil {
		return chainio.PendingTx{}, fmt.Errorf("pack %s: %w", call.Method, err)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.address)
	if err != nil {
		return chainio.PendingTx{}, fmt.Errorf("fetch nonce: %w", err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return chainio.PendingTx{}, fmt.Errorf("suggest gas price: %w", err)
	}

	value := call.Value
	if value == nil {
		value = big.NewInt(0)
	}

	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.address,
		To:    &call.Target,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return chainio.PendingTx{}, fmt.Errorf("estimate gas for %s: %w", call.Method, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &call.Target,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return chainio.PendingTx{}, fmt.Errorf("sign %s: %w", call.Method, err)
	}

	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		return chainio.PendingTx{}, fmt.Errorf("send %s: %w", call.Method, err)
	}

	c.logger.Debug("Transaction submitted",
		zap.String("method", call.Method),
		zap.String("tx_hash", signedTx.Hash().Hex()))
	return chainio.PendingTx{Hash: signedTx.Hash()}, nil
}

// Await polls for the transaction receipt until it lands or timeout elapses.
// Transport failures are returned as errors; mined outcomes, including
// reverts, come back through the result.
func (c *Client) Await(ctx context.Context, tx chainio.PendingTx, timeout time.Duration) (chainio.WaitResult, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, tx.Hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return chainio.WaitResult{Status: chainio.WaitReverted}, nil
			}
			return chainio.WaitResult{
				Status: chainio.WaitConfirmed,
				Receipt: &chainio.Receipt{
					TxHash:      receipt.TxHash,
					BlockNumber: receipt.BlockNumber.Uint64(),
					GasUsed:     receipt.GasUsed,
				},
			}, nil
		case errors.Is(err, ethereum.NotFound):
			// Still pending.
		default:
			return chainio.WaitResult{}, fmt.Errorf("fetch receipt %s: %w", tx.Hash.Hex(), err)
		}

		if time.Now().After(deadline) {
			return chainio.WaitResult{Status: chainio.WaitTimedOut}, nil
		}
		select {
		case <-ctx.Done():
			return chainio.WaitResult{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
