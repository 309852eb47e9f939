// Package chain wraps the read/write surface of the on-chain agent registry
// (spec §4.1, §6). It is the only package in the module that imports
// go-ethereum; every other package talks to chain state through this Client.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
)

// Client is a thin, synchronous wrapper over ethclient.Client plus the
// registry ABI. It holds no business state of its own — agents and the hub
// call through it and keep their own rings/caches.
type Client struct {
	eth      *ethclient.Client
	log      zerolog.Logger
	registry common.Address
	chainID  *big.Int

	privateKey *ecdsa.PrivateKey
	address    common.Address
	readOnly   bool
}

// Dial connects to rpcURL and, when privateKeyHex is non-empty, derives a
// signer address. registryAddr may be the zero address, in which case
// registration and every registry write send nothing and return
// ErrRegistrationSkipped (spec §6).
func Dial(ctx context.Context, rpcURL, privateKeyHex, registryAddrHex string, log zerolog.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}

	c := &Client{
		eth:      eth,
		log:      log.With().Str("component", "chain").Logger(),
		registry: common.HexToAddress(strings.TrimSpace(registryAddrHex)),
		readOnly: true,
	}

	if key := strings.TrimSpace(privateKeyHex); key != "" {
		key = strings.TrimPrefix(key, "0x")
		pk, err := crypto.HexToECDSA(key)
		if err != nil {
			return nil, fmt.Errorf("chain: parse private key: %w", err)
		}
		c.privateKey = pk
		c.address = crypto.PubkeyToAddress(pk.PublicKey)
		c.readOnly = false
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain: fetch chain id: %w", err)
	}
	c.chainID = chainID

	return c, nil
}

// ReadOnly reports whether the client has no signer configured.
func (c *Client) ReadOnly() bool { return c.readOnly }

// Address is the signer's address, or the zero address in read-only mode.
func (c *Client) Address() common.Address { return c.address }

// RegistryConfigured reports whether a non-zero registry address was set.
func (c *Client) RegistryConfigured() bool {
	return c.registry != (common.Address{})
}

// GetBlockNumber returns the current head block number.
func (c *Client) GetBlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// GetGasPrice returns the network's suggested gas price, in wei.
func (c *Client) GetGasPrice(ctx context.Context) (*big.Int, error) {
	return c.eth.SuggestGasPrice(ctx)
}

// GetBlock returns the block header timestamp and number for n.
func (c *Client) GetBlock(ctx context.Context, n uint64) (*types.Header, error) {
	return c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(n))
}

// IsRegistered reads the agents(address) view and reports the isRegistered
// flag (spec §4.1: registration must be checked before writing, so repeated
// agent restarts never re-register).
func (c *Client) IsRegistered(ctx context.Context) (bool, error) {
	if !c.RegistryConfigured() {
		return false, ErrRegistrationSkipped
	}
	out, err := c.callView(ctx, "agents", c.address)
	if err != nil {
		return false, err
	}
	if len(out) == 0 {
		return false, nil
	}
	reg, ok := out[len(out)-1].(bool)
	if !ok {
		return false, fmt.Errorf("chain: agents() unexpected return shape")
	}
	return reg, nil
}

// RegisterAgent registers name on-chain, skipping the call entirely if the
// agent is already registered (idempotent per spec §4.1 invariant).
func (c *Client) RegisterAgent(ctx context.Context, name string) error {
	if c.readOnly {
		return ErrReadOnly
	}
	if !c.RegistryConfigured() {
		return ErrRegistrationSkipped
	}
	already, err := c.IsRegistered(ctx)
	if err != nil {
		return err
	}
	if already {
		c.log.Debug().Str("agent", name).Msg("already registered, skipping")
		return nil
	}
	if _, err := c.sendTx(ctx, "registerAgent", name); err != nil {
		return &TxError{Op: "registerAgent", Err: err}
	}
	return nil
}

// PostSignal posts a trading signal. priceScaled is already a base-18
// integer (see ToFixed18); confidence must be in [0,100].
func (c *Client) PostSignal(ctx context.Context, signalType string, confidence int, priceScaled *big.Int, reason string) error {
	if c.readOnly {
		return ErrReadOnly
	}
	if confidence < 0 || confidence > 100 {
		return ErrInvalidConfidence
	}
	_, err := c.sendTx(ctx, "postSignal", signalType, big.NewInt(int64(confidence)), priceScaled, reason)
	if err != nil {
		return &TxError{Op: "postSignal", Err: err}
	}
	return nil
}

// PostPrediction posts a directional prediction targeting targetUnixSec,
// which must be strictly after the current moment.
func (c *Client) PostPrediction(ctx context.Context, direction string, confidence int, referencePriceScaled *big.Int, targetUnixSec int64) error {
	if c.readOnly {
		return ErrReadOnly
	}
	if confidence < 0 || confidence > 100 {
		return ErrInvalidConfidence
	}
	if targetUnixSec <= time.Now().Unix() {
		return ErrTargetTimeNotFuture
	}
	_, err := c.sendTx(ctx, "postPrediction", direction, big.NewInt(int64(confidence)), referencePriceScaled, big.NewInt(targetUnixSec))
	if err != nil {
		return &TxError{Op: "postPrediction", Err: err}
	}
	return nil
}

// GetAgentAccuracy reads the contract's running accuracy score for addr, as
// a percentage in [0,100].
func (c *Client) GetAgentAccuracy(ctx context.Context, addr common.Address) (*big.Int, error) {
	out, err := c.callView(ctx, "getAgentAccuracy", addr)
	if err != nil {
		return nil, err
	}
	acc, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: getAgentAccuracy() unexpected return shape")
	}
	return acc, nil
}

// GetTotalSupply reads the ERC20 totalSupply() of tokenAddr, in base units.
func (c *Client) GetTotalSupply(ctx context.Context, tokenAddr common.Address) (*big.Int, error) {
	data, err := erc20TransferABI.Pack("totalSupply")
	if err != nil {
		return nil, fmt.Errorf("chain: pack totalSupply: %w", err)
	}
	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &tokenAddr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call totalSupply: %w", err)
	}
	out, err := erc20TransferABI.Unpack("totalSupply", raw)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack totalSupply: %w", err)
	}
	supply, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: totalSupply() unexpected return shape")
	}
	return supply, nil
}

// VerifyPrediction settles a previously posted prediction at index with the
// realized price (spec §4.1, §6). The contract itself determines correctness
// by comparing the stored direction label to the realized UP/DOWN/SIDEWAYS
// label; this call only supplies the observed price.
func (c *Client) VerifyPrediction(ctx context.Context, index uint64, actualPriceScaled *big.Int) error {
	if c.readOnly {
		return ErrReadOnly
	}
	if _, err := c.sendTx(ctx, "verifyPrediction", new(big.Int).SetUint64(index), actualPriceScaled); err != nil {
		return &TxError{Op: "verifyPrediction", Err: err}
	}
	return nil
}

// GetTransferLogs fetches ERC20 Transfer events for tokenAddr in
// [fromBlock, toBlock], used by the whale and on-chain agents (spec §4.6).
func (c *Client) GetTransferLogs(ctx context.Context, tokenAddr common.Address, fromBlock, toBlock uint64) ([]domain.TransferEvent, error) {
	topic := erc20TransferABI.Events["Transfer"].ID
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{tokenAddr},
		Topics:    [][]common.Hash{{topic}},
	}
	logs, err := c.eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("chain: filter transfer logs: %w", err)
	}

	out := make([]domain.TransferEvent, 0, len(logs))
	for _, lg := range logs {
		if len(lg.Topics) < 3 {
			continue
		}
		var unpacked struct{ Value *big.Int }
		if err := erc20TransferABI.UnpackIntoInterface(&unpacked, "Transfer", lg.Data); err != nil {
			c.log.Warn().Err(err).Msg("skipping unparseable transfer log")
			continue
		}
		out = append(out, domain.TransferEvent{
			From:        common.HexToAddress(lg.Topics[1].Hex()).Hex(),
			To:          common.HexToAddress(lg.Topics[2].Hex()).Hex(),
			Value:       unpacked.Value.String(),
			BlockNumber: lg.BlockNumber,
			TxHash:      lg.TxHash.Hex(),
		})
	}
	return out, nil
}

// callView ABI-encodes method/args, performs an eth_call against the
// registry, and decodes the result.
func (c *Client) callView(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := registryABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", method, err)
	}
	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &c.registry,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s: %w", method, err)
	}
	out, err := registryABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack %s: %w", method, err)
	}
	return out, nil
}

// sendTx signs and submits a registry write, then blocks until the receipt
// lands or the context is cancelled (spec §4.1: writes are fire-and-wait,
// with the caller's own context enforcing a timeout).
func (c *Client) sendTx(ctx context.Context, method string, args ...interface{}) (*types.Receipt, error) {
	if !c.RegistryConfigured() {
		return nil, ErrRegistrationSkipped
	}
	data, err := registryABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}

	msg := ethereum.CallMsg{From: c.address, To: &c.registry, Data: data}
	gasLimit, err := c.eth.EstimateGas(ctx, msg)
	if err != nil {
		gasLimit = 300_000 // conservative fallback when estimation reverts on a stale node
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.registry,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signer := types.NewEIP155Signer(c.chainID)
	signedTx, err := types.SignTx(tx, signer, c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}

	return c.waitForReceipt(ctx, signedTx.Hash())
}

func (c *Client) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			receipt, err := c.eth.TransactionReceipt(ctx, txHash)
			if err == nil {
				return receipt, nil
			}
			if err != ethereum.NotFound {
				return nil, err
			}
		}
	}
}
