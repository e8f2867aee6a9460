package chain

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"custodial-wallet-engine/config"
	"custodial-wallet-engine/internal/core/ports"

	"github.com/rs/zerolog"
)

// HTTPClient abstracts the HTTP layer for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RPCClient talks JSON-RPC to a ledger network node. It implements
// ports.BalanceOracle and ports.ChainSubmitter.
type RPCClient struct {
	url        string
	commitment string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewRPCClient creates an RPC client from chain configuration.
func NewRPCClient(cfg config.ChainConfig, log zerolog.Logger) *RPCClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RPCClient{
		url:        cfg.RPCURL,
		commitment: cfg.Commitment,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// NewRPCClientWithHTTP creates an RPC client with a custom HTTP client
// (used in tests).
func NewRPCClientWithHTTP(url, commitment string, httpClient HTTPClient, log zerolog.Logger) *RPCClient {
	return &RPCClient{
		url:        url,
		commitment: commitment,
		httpClient: httpClient,
		log:        log,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one JSON-RPC round trip, decoding result into out.
func (c *RPCClient) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read rpc response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc %s: http %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("decode rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc %s: %w", method, rpcResp.Error)
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("decode rpc result: %w", err)
		}
	}
	return nil
}

// NativeBalance returns the account's lamport balance. Unknown accounts
// report zero.
func (c *RPCClient) NativeBalance(ctx context.Context, address string) (int64, error) {
	var result struct {
		Value int64 `json:"value"`
	}
	err := c.call(ctx, "getBalance", []any{address, map[string]string{"commitment": c.commitment}}, &result)
	if err != nil {
		return 0, err
	}
	return result.Value, nil
}

// TokenBalance returns the owner's balance for a mint in base units.
// A missing holding sub-account reports zero.
func (c *RPCClient) TokenBalance(ctx context.Context, owner string, mint string) (int64, error) {
	ata, err := AssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, err
	}

	exists, err := c.AccountExists(ctx, ata)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	var result struct {
		Value struct {
			Amount string `json:"amount"`
		} `json:"value"`
	}
	err = c.call(ctx, "getTokenAccountBalance", []any{ata, map[string]string{"commitment": c.commitment}}, &result)
	if err != nil {
		return 0, err
	}

	amount, err := strconv.ParseInt(result.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse token balance %q: %w", result.Value.Amount, err)
	}
	return amount, nil
}

// AccountExists reports whether the account has been created on the network.
func (c *RPCClient) AccountExists(ctx context.Context, address string) (bool, error) {
	var result struct {
		Value json.RawMessage `json:"value"`
	}
	err := c.call(ctx, "getAccountInfo", []any{address, map[string]string{"encoding": "base64", "commitment": c.commitment}}, &result)
	if err != nil {
		return false, err
	}
	return len(result.Value) > 0 && string(result.Value) != "null", nil
}

// TokenAccountExists reports whether the owner's holding sub-account for a
// mint exists.
func (c *RPCClient) TokenAccountExists(ctx context.Context, owner string, mint string) (bool, error) {
	ata, err := AssociatedTokenAddress(owner, mint)
	if err != nil {
		return false, err
	}
	return c.AccountExists(ctx, ata)
}

// LatestBlockhash fetches a recent blockhash for transaction assembly.
func (c *RPCClient) LatestBlockhash(ctx context.Context) (string, error) {
	var result struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	err := c.call(ctx, "getLatestBlockhash", []any{map[string]string{"commitment": c.commitment}}, &result)
	if err != nil {
		return "", err
	}
	return result.Value.Blockhash, nil
}

// Submit sends a signed transaction; the returned signature identifies it on
// the network.
func (c *RPCClient) Submit(ctx context.Context, signedTx []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(signedTx)

	var signature string
	err := c.call(ctx, "sendTransaction", []any{encoded, map[string]any{
		"encoding":            "base64",
		"preflightCommitment": c.commitment,
	}}, &signature)
	if err != nil {
		return "", err
	}

	c.log.Debug().Str("signature", signature).Msg("transaction submitted")
	return signature, nil
}

// SignatureStatus reports the current observation of a submitted transaction.
func (c *RPCClient) SignatureStatus(ctx context.Context, signature string) (ports.TxStatus, error) {
	var result struct {
		Value []*struct {
			ConfirmationStatus string          `json:"confirmationStatus"`
			Err                json.RawMessage `json:"err"`
		} `json:"value"`
	}
	err := c.call(ctx, "getSignatureStatuses", []any{[]string{signature}, map[string]bool{
		"searchTransactionHistory": true,
	}}, &result)
	if err != nil {
		return ports.TxStatusPending, err
	}

	if len(result.Value) == 0 || result.Value[0] == nil {
		return ports.TxStatusPending, nil
	}
	status := result.Value[0]
	if len(status.Err) > 0 && string(status.Err) != "null" {
		return ports.TxStatusFailed, nil
	}
	switch status.ConfirmationStatus {
	case "confirmed", "finalized":
		return ports.TxStatusConfirmed, nil
	default:
		return ports.TxStatusPending, nil
	}
}
