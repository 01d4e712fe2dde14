package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/out/baas"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/out/directory"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/out/lock"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/usecase"
)

func startServer(t *testing.T) (*Client, *baas.MockProvider) {
	t.Helper()
	store, err := memory.NewShardedStore(nil, nil)
	require.NoError(t, err)
	dir, err := directory.NewStaticDirectory([]directory.Wallet{
		{ID: "w-1", Members: []string{"alice", "bob"}, Cards: []string{"card-1"}},
	})
	require.NoError(t, err)
	provider, err := baas.NewMockProvider("s3cret", "")
	require.NoError(t, err)
	core := usecase.NewCoreUseCase(usecase.Dependencies{
		Store:     store,
		Locker:    lock.NewLocalLocker(time.Second),
		Directory: dir,
		Provider:  provider,
		Policy:    usecase.DefaultPolicy(),
	})

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(zap.NewNop())))
	RegisterPoolLedgerServer(s, NewGrpcServer(core))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn), provider
}

func requireCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, status.Code(err), err.Error())
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, _ := startServer(t)

	deposit := &DepositRequest{WalletID: "w-1", DepositCommand: usecase.DepositCommand{
		TransactionID: "d1", CardID: "card-1", UserID: "alice", Amount: 7000,
	}}
	res, err := client.PostDeposit(ctx, deposit)
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, domain.TransactionKindDeposit, res.Transaction.Kind)

	again, err := client.PostDeposit(ctx, deposit)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, res.Transaction.ID, again.Transaction.ID)

	_, err = client.PostDeposit(ctx, &DepositRequest{DepositCommand: usecase.DepositCommand{
		TransactionID: "d2", CardID: "card-1", UserID: "bob", Amount: 3000,
	}})
	require.NoError(t, err)

	_, err = client.PostCapture(ctx, &CaptureRequest{WalletID: "w-1", CaptureCommand: usecase.CaptureCommand{
		TransactionID: "c1", CardID: "card-1",
		Splits: []domain.Split{{UserID: "alice", Amount: 1000}, {UserID: "bob", Amount: 500}},
	}})
	require.NoError(t, err)

	w, err := client.RequestWithdrawal(ctx, &WithdrawalRequest{WalletID: "w-1", WithdrawalCommand: usecase.WithdrawalCommand{
		TransactionID: "w1", CardID: "card-1", UserID: "bob", Amount: 1000,
	}})
	require.NoError(t, err)
	require.NotNil(t, w.Transaction.Withdrawal)
	withdrawalID := w.Transaction.Withdrawal.ID
	assert.Equal(t, domain.WithdrawalID("w1"), withdrawalID)

	fin, err := client.FinalizeWithdrawal(ctx, &ResolveRequest{ResolveCommand: usecase.ResolveCommand{
		TransactionID: "f1", WithdrawalID: withdrawalID,
	}})
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalFinalized, fin.Transaction.Withdrawal.Status)

	view, err := client.GetCardBalances(ctx, &CardBalancesRequest{WalletID: "w-1", CardID: "card-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(7500), view.PoolBalance)
	assert.Equal(t, "75.00", view.PoolBalanceDisplay)
	require.Len(t, view.Members, 2)

	wallet, err := client.GetWalletBalances(ctx, &WalletBalancesRequest{WalletID: "w-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(7500), wallet.PoolBalance)

	report, err := client.GetReconciliation(ctx, &ReconciliationRequest{CardID: "card-1"})
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, int64(7500), report.EquityTotal)

	all, err := client.ReconcileAll(ctx, &ReconcileAllRequest{})
	require.NoError(t, err)
	require.Len(t, all.Reports, 1)
	assert.Equal(t, "card-1", all.Reports[0].CardID)
}

func TestErrorCodes(t *testing.T) {
	ctx := context.Background()
	client, _ := startServer(t)

	_, err := client.PostDeposit(ctx, &DepositRequest{DepositCommand: usecase.DepositCommand{
		TransactionID: "d1", CardID: "card-1", UserID: "alice", Amount: -5,
	}})
	requireCode(t, err, codes.InvalidArgument)

	_, err = client.PostDeposit(ctx, &DepositRequest{WalletID: "w-1", DepositCommand: usecase.DepositCommand{
		TransactionID: "d2", CardID: "card-7", UserID: "alice", Amount: 5,
	}})
	requireCode(t, err, codes.PermissionDenied)

	_, err = client.PostCapture(ctx, &CaptureRequest{CaptureCommand: usecase.CaptureCommand{
		TransactionID: "c1", CardID: "card-1", Splits: []domain.Split{{UserID: "alice", Amount: 1}},
	}})
	requireCode(t, err, codes.FailedPrecondition)

	_, err = client.FinalizeWithdrawal(ctx, &ResolveRequest{ResolveCommand: usecase.ResolveCommand{
		TransactionID: "f1", WithdrawalID: domain.WithdrawalID("missing"),
	}})
	requireCode(t, err, codes.NotFound)

	_, err = client.ReverseWithdrawal(ctx, &ResolveRequest{WalletID: "w-404", ResolveCommand: usecase.ResolveCommand{
		TransactionID: "r1", WithdrawalID: domain.WithdrawalID("missing"),
	}})
	requireCode(t, err, codes.NotFound)

	_, err = client.GetWalletBalances(ctx, &WalletBalancesRequest{WalletID: "w-404"})
	requireCode(t, err, codes.NotFound)

	_, err = client.IngestWebhook(ctx, &WebhookRequest{Payload: []byte(`{"id":"evt-1"}`), Signature: "00"})
	requireCode(t, err, codes.Unauthenticated)
}

func TestWebhookAndCardIssuing(t *testing.T) {
	ctx := context.Background()
	client, provider := startServer(t)

	payload, err := json.Marshal(domain.ProviderEvent{ID: "evt-1", Type: domain.ProviderEventDeposit, CardID: "card-1", UserID: "alice", Amount: 250})
	require.NoError(t, err)
	res, err := client.IngestWebhook(ctx, &WebhookRequest{Payload: payload, Signature: provider.Sign(payload)})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionID("mock:evt-1"), res.Transaction.ID)

	card, err := client.IssueCard(ctx, &IssueCardRequest{WalletID: "w-1"})
	require.NoError(t, err)
	assert.Equal(t, "w-1", card.WalletID)
	assert.Len(t, card.Last4, 4)

	widget, err := client.IssueWidgetURL(ctx, &WidgetURLRequest{WalletID: "w-1", CardID: card.CardID})
	require.NoError(t, err)
	assert.Contains(t, widget.URL, card.CardID)
}

func TestToStatus(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("%w: x", domain.ErrInvalidSplit), codes.InvalidArgument},
		{domain.ErrInsufficientAvailableBalance, codes.FailedPrecondition},
		{domain.ErrInvalidStateTransition, codes.FailedPrecondition},
		{domain.ErrLockTimeout, codes.Unavailable},
		{domain.ErrProviderUnsupported, codes.Unimplemented},
		{fmt.Errorf("%w: %w", domain.ErrStorageFailure, context.DeadlineExceeded), codes.DeadlineExceeded},
		{fmt.Errorf("%w: disk full", domain.ErrStorageFailure), codes.Internal},
		{fmt.Errorf("boom"), codes.Internal},
	}
	for _, c := range cases {
		assert.Equal(t, c.code, status.Code(toStatus(c.err)), c.err.Error())
	}
}
