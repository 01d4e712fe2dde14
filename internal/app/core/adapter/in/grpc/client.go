package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
)

// Client 帳本服務的 client，所有呼叫都使用 JSON codec
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient 以既有連線建立 Client
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PostDeposit(ctx context.Context, in *DepositRequest, opts ...grpc.CallOption) (*PostingResponse, error) {
	return invoke[PostingResponse](ctx, c, "PostDeposit", in, opts)
}

func (c *Client) PostCapture(ctx context.Context, in *CaptureRequest, opts ...grpc.CallOption) (*PostingResponse, error) {
	return invoke[PostingResponse](ctx, c, "PostCapture", in, opts)
}

func (c *Client) RequestWithdrawal(ctx context.Context, in *WithdrawalRequest, opts ...grpc.CallOption) (*PostingResponse, error) {
	return invoke[PostingResponse](ctx, c, "RequestWithdrawal", in, opts)
}

func (c *Client) FinalizeWithdrawal(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*PostingResponse, error) {
	return invoke[PostingResponse](ctx, c, "FinalizeWithdrawal", in, opts)
}

func (c *Client) ReverseWithdrawal(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*PostingResponse, error) {
	return invoke[PostingResponse](ctx, c, "ReverseWithdrawal", in, opts)
}

func (c *Client) GetCardBalances(ctx context.Context, in *CardBalancesRequest, opts ...grpc.CallOption) (*domain.CardDisplayBalances, error) {
	return invoke[domain.CardDisplayBalances](ctx, c, "GetCardBalances", in, opts)
}

func (c *Client) GetWalletBalances(ctx context.Context, in *WalletBalancesRequest, opts ...grpc.CallOption) (*domain.AggregatedWalletBalances, error) {
	return invoke[domain.AggregatedWalletBalances](ctx, c, "GetWalletBalances", in, opts)
}

func (c *Client) GetReconciliation(ctx context.Context, in *ReconciliationRequest, opts ...grpc.CallOption) (*domain.CardReconciliation, error) {
	return invoke[domain.CardReconciliation](ctx, c, "GetReconciliation", in, opts)
}

func (c *Client) ReconcileAll(ctx context.Context, in *ReconcileAllRequest, opts ...grpc.CallOption) (*ReconcileAllResponse, error) {
	return invoke[ReconcileAllResponse](ctx, c, "ReconcileAll", in, opts)
}

func (c *Client) IngestWebhook(ctx context.Context, in *WebhookRequest, opts ...grpc.CallOption) (*PostingResponse, error) {
	return invoke[PostingResponse](ctx, c, "IngestWebhook", in, opts)
}

func (c *Client) IssueCard(ctx context.Context, in *IssueCardRequest, opts ...grpc.CallOption) (*domain.IssuedCard, error) {
	return invoke[domain.IssuedCard](ctx, c, "IssueCard", in, opts)
}

func (c *Client) IssueWidgetURL(ctx context.Context, in *WidgetURLRequest, opts ...grpc.CallOption) (*WidgetURLResponse, error) {
	return invoke[WidgetURLResponse](ctx, c, "IssueWidgetURL", in, opts)
}
