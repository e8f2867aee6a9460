package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"custodial-wallet-engine/internal/core/ports"
	"custodial-wallet-engine/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcStub serves canned JSON-RPC results keyed by method name.
func rpcStub(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, ok := results[req.Method]
		if !ok {
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`)
			return
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":%s}`, result)
	}))
}

func newTestClient(url string) *RPCClient {
	return NewRPCClientWithHTTP(url, "confirmed", &http.Client{}, logger.New("error", false))
}

func TestRPCClient_NativeBalance(t *testing.T) {
	srv := rpcStub(t, map[string]string{
		"getBalance": `{"context":{"slot":1},"value":2000000000}`,
	})
	defer srv.Close()

	bal, err := newTestClient(srv.URL).NativeBalance(context.Background(), SystemProgramID)
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000_000), bal)
}

func TestRPCClient_AccountExists(t *testing.T) {
	srv := rpcStub(t, map[string]string{
		"getAccountInfo": `{"context":{"slot":1},"value":{"lamports":890880,"owner":"11111111111111111111111111111111"}}`,
	})
	defer srv.Close()

	exists, err := newTestClient(srv.URL).AccountExists(context.Background(), SystemProgramID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRPCClient_AccountExists_Missing(t *testing.T) {
	srv := rpcStub(t, map[string]string{
		"getAccountInfo": `{"context":{"slot":1},"value":null}`,
	})
	defer srv.Close()

	exists, err := newTestClient(srv.URL).AccountExists(context.Background(), SystemProgramID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRPCClient_TokenBalance_MissingAccountIsZero(t *testing.T) {
	srv := rpcStub(t, map[string]string{
		"getAccountInfo": `{"context":{"slot":1},"value":null}`,
	})
	defer srv.Close()

	owner, err := GenerateKeypair()
	require.NoError(t, err)

	bal, err := newTestClient(srv.URL).TokenBalance(context.Background(), owner.Address, testMintUSDC)
	require.NoError(t, err)
	assert.Zero(t, bal, "missing sub-account reads as zero, not an error")
}

func TestRPCClient_TokenBalance(t *testing.T) {
	srv := rpcStub(t, map[string]string{
		"getAccountInfo":         `{"context":{"slot":1},"value":{"lamports":2039280}}`,
		"getTokenAccountBalance": `{"context":{"slot":1},"value":{"amount":"1500000","decimals":6}}`,
	})
	defer srv.Close()

	owner, err := GenerateKeypair()
	require.NoError(t, err)

	bal, err := newTestClient(srv.URL).TokenBalance(context.Background(), owner.Address, testMintUSDC)
	require.NoError(t, err)
	assert.Equal(t, int64(1_500_000), bal)
}

func TestRPCClient_LatestBlockhash(t *testing.T) {
	srv := rpcStub(t, map[string]string{
		"getLatestBlockhash": `{"context":{"slot":1},"value":{"blockhash":"EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N","lastValidBlockHeight":100}}`,
	})
	defer srv.Close()

	hash, err := newTestClient(srv.URL).LatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N", hash)
}

func TestRPCClient_Submit(t *testing.T) {
	srv := rpcStub(t, map[string]string{
		"sendTransaction": `"5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnb"`,
	})
	defer srv.Close()

	sig, err := newTestClient(srv.URL).Submit(context.Background(), []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnb", sig)
}

func TestRPCClient_Submit_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32002,"message":"Blockhash not found"}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Submit(context.Background(), []byte{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Blockhash not found")
}

func TestRPCClient_SignatureStatus(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   ports.TxStatus
	}{
		{"unobserved", `{"context":{"slot":1},"value":[null]}`, ports.TxStatusPending},
		{"processed", `{"context":{"slot":1},"value":[{"confirmationStatus":"processed","err":null}]}`, ports.TxStatusPending},
		{"confirmed", `{"context":{"slot":1},"value":[{"confirmationStatus":"confirmed","err":null}]}`, ports.TxStatusConfirmed},
		{"finalized", `{"context":{"slot":1},"value":[{"confirmationStatus":"finalized","err":null}]}`, ports.TxStatusConfirmed},
		{"failed", `{"context":{"slot":1},"value":[{"confirmationStatus":"confirmed","err":{"InstructionError":[0,"Custom"]}}]}`, ports.TxStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := rpcStub(t, map[string]string{"getSignatureStatuses": tt.result})
			defer srv.Close()

			status, err := newTestClient(srv.URL).SignatureStatus(context.Background(), "sig")
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}
