package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	botcrypto "github.com/CommonsHub/token-bot/crypto"
)

// funcClient routes each RPC call to an optional stub.
type funcClient struct {
	mu sync.Mutex

	callFunc    func(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	sendFunc    func(ctx context.Context, tx *gethtypes.Transaction) error
	receiptFunc func(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error)

	sent []*gethtypes.Transaction
}

func (c *funcClient) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if c.callFunc != nil {
		return c.callFunc(ctx, msg)
	}
	return nil, fmt.Errorf("unexpected call")
}

func (c *funcClient) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 7, nil
}

func (c *funcClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (c *funcClient) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 90_000, nil
}

func (c *funcClient) SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error {
	c.mu.Lock()
	c.sent = append(c.sent, tx)
	c.mu.Unlock()
	if c.sendFunc != nil {
		return c.sendFunc(ctx, tx)
	}
	return nil
}

func (c *funcClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	if c.receiptFunc != nil {
		return c.receiptFunc(ctx, hash)
	}
	return &gethtypes.Receipt{Status: gethtypes.ReceiptStatusSuccessful}, nil
}

func (c *funcClient) sentTxs() []*gethtypes.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*gethtypes.Transaction(nil), c.sent...)
}

func testToken() Token {
	return Token{
		Address:  common.HexToAddress("0x32E3bdE82C1030c2f9DBd65F41dDE0D4e1c67A00"),
		Decimals: 6,
		Symbol:   "CHT",
		ChainID:  100,
	}
}

func testKey(t *testing.T) *botcrypto.PrivateKey {
	t.Helper()
	key, err := botcrypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func newTestExecutor(t *testing.T, client *funcClient, opts ...ExecutorOption) *Executor {
	t.Helper()
	opts = append([]ExecutorOption{WithPollInterval(time.Millisecond)}, opts...)
	exec, err := NewExecutor(client, testToken(), testKey(t), opts...)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}
	return exec
}

func balanceResponse(t *testing.T, units int64) []byte {
	t.Helper()
	out, err := tokenABI.Methods["balanceOf"].Outputs.Pack(big.NewInt(units))
	if err != nil {
		t.Fatalf("pack balance: %v", err)
	}
	return out
}

func hasRoleResponse(t *testing.T, has bool) []byte {
	t.Helper()
	out, err := tokenABI.Methods["hasRole"].Outputs.Pack(has)
	if err != nil {
		t.Fatalf("pack hasRole: %v", err)
	}
	return out
}

func TestBalanceReadsHumanUnits(t *testing.T) {
	client := &funcClient{
		callFunc: func(_ context.Context, msg ethereum.CallMsg) ([]byte, error) {
			if msg.To == nil || *msg.To != testToken().Address {
				t.Fatalf("balance read sent to %v", msg.To)
			}
			return balanceResponse(t, 5_000_000), nil
		},
	}
	exec := newTestExecutor(t, client)
	balance, err := exec.Balance(context.Background(), common.HexToAddress("0x01"))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.String() != "5" {
		t.Fatalf("balance = %s, want 5", balance)
	}
}

func TestExecuteBurnSubmitsAndConfirms(t *testing.T) {
	client := &funcClient{}
	exec := newTestExecutor(t, client)

	outcome := exec.Execute(context.Background(), OpBurn, common.HexToAddress("0x02"), mustAmount(t, "3"))
	if !outcome.Success {
		t.Fatalf("burn failed: %v", outcome.Err)
	}
	sent := client.sentTxs()
	if len(sent) != 1 {
		t.Fatalf("sent %d transactions, want 1", len(sent))
	}
	if outcome.TxHash != sent[0].Hash().Hex() {
		t.Fatalf("outcome hash %s does not match submitted %s", outcome.TxHash, sent[0].Hash().Hex())
	}
	// burnFrom(account, 3 * 10^6)
	data := sent[0].Data()
	method, err := tokenABI.MethodById(data[:4])
	if err != nil {
		t.Fatalf("method lookup: %v", err)
	}
	if method.Name != "burnFrom" {
		t.Fatalf("submitted %s, want burnFrom", method.Name)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack args: %v", err)
	}
	if amount := args[1].(*big.Int); amount.Cmp(big.NewInt(3_000_000)) != 0 {
		t.Fatalf("burn amount = %s base units, want 3000000", amount)
	}
}

func TestExecuteRejectsNonPositiveAmount(t *testing.T) {
	client := &funcClient{}
	exec := newTestExecutor(t, client)
	outcome := exec.Execute(context.Background(), OpMint, common.HexToAddress("0x02"), Amount{})
	if outcome.Success || outcome.Err == nil {
		t.Fatal("expected zero amount to be rejected")
	}
	negative := mustAmount(t, "2").Sub(mustAmount(t, "5"))
	outcome = exec.Execute(context.Background(), OpMint, common.HexToAddress("0x02"), negative)
	if outcome.Success || outcome.Err == nil {
		t.Fatal("expected negative amount to be rejected")
	}
	if len(client.sentTxs()) != 0 {
		t.Fatal("no transaction should be submitted")
	}
}

func TestExecuteDryRunSkipsSubmission(t *testing.T) {
	client := &funcClient{}
	exec := newTestExecutor(t, client, WithDryRun(true))
	outcome := exec.Execute(context.Background(), OpMint, common.HexToAddress("0x02"), mustAmount(t, "1"))
	if !outcome.Success {
		t.Fatalf("dry run outcome: %v", outcome.Err)
	}
	if outcome.TxHash == "" {
		t.Fatal("dry run must produce a synthetic hash")
	}
	if len(client.sentTxs()) != 0 {
		t.Fatal("dry run must not submit transactions")
	}
}

func TestExecuteRevertedTransactionFails(t *testing.T) {
	client := &funcClient{
		receiptFunc: func(context.Context, common.Hash) (*gethtypes.Receipt, error) {
			return &gethtypes.Receipt{Status: gethtypes.ReceiptStatusFailed}, nil
		},
		callFunc: func(_ context.Context, _ ethereum.CallMsg) ([]byte, error) {
			return hasRoleResponse(t, true), nil
		},
	}
	exec := newTestExecutor(t, client)
	outcome := exec.Execute(context.Background(), OpBurn, common.HexToAddress("0x02"), mustAmount(t, "1"))
	if outcome.Success {
		t.Fatal("reverted transaction must fail")
	}
	if outcome.ErrorClass != ClassOther {
		t.Fatalf("class = %q, want %q", outcome.ErrorClass, ClassOther)
	}
}

func TestExecuteClassifiesMissingCapability(t *testing.T) {
	client := &funcClient{
		sendFunc: func(context.Context, *gethtypes.Transaction) error {
			return fmt.Errorf("execution reverted")
		},
		callFunc: func(_ context.Context, _ ethereum.CallMsg) ([]byte, error) {
			return hasRoleResponse(t, false), nil
		},
	}
	exec := newTestExecutor(t, client)
	outcome := exec.Execute(context.Background(), OpMint, common.HexToAddress("0x02"), mustAmount(t, "1"))
	if outcome.Success {
		t.Fatal("submission failure must not succeed")
	}
	if outcome.ErrorClass != ClassMissingCapability {
		t.Fatalf("class = %q, want %q", outcome.ErrorClass, ClassMissingCapability)
	}
}
