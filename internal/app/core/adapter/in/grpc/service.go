package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
)

// ServiceName gRPC 服務全名
const ServiceName = "ledger.v1.PoolLedger"

// PoolLedgerServer 帳本服務
type PoolLedgerServer interface {
	PostDeposit(context.Context, *DepositRequest) (*PostingResponse, error)
	PostCapture(context.Context, *CaptureRequest) (*PostingResponse, error)
	RequestWithdrawal(context.Context, *WithdrawalRequest) (*PostingResponse, error)
	FinalizeWithdrawal(context.Context, *ResolveRequest) (*PostingResponse, error)
	ReverseWithdrawal(context.Context, *ResolveRequest) (*PostingResponse, error)
	GetCardBalances(context.Context, *CardBalancesRequest) (*domain.CardDisplayBalances, error)
	GetWalletBalances(context.Context, *WalletBalancesRequest) (*domain.AggregatedWalletBalances, error)
	GetReconciliation(context.Context, *ReconciliationRequest) (*domain.CardReconciliation, error)
	ReconcileAll(context.Context, *ReconcileAllRequest) (*ReconcileAllResponse, error)
	IngestWebhook(context.Context, *WebhookRequest) (*PostingResponse, error)
	IssueCard(context.Context, *IssueCardRequest) (*domain.IssuedCard, error)
	IssueWidgetURL(context.Context, *WidgetURLRequest) (*WidgetURLResponse, error)
}

// ServiceDesc 提供給 grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PoolLedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("PostDeposit", PoolLedgerServer.PostDeposit),
		unary("PostCapture", PoolLedgerServer.PostCapture),
		unary("RequestWithdrawal", PoolLedgerServer.RequestWithdrawal),
		unary("FinalizeWithdrawal", PoolLedgerServer.FinalizeWithdrawal),
		unary("ReverseWithdrawal", PoolLedgerServer.ReverseWithdrawal),
		unary("GetCardBalances", PoolLedgerServer.GetCardBalances),
		unary("GetWalletBalances", PoolLedgerServer.GetWalletBalances),
		unary("GetReconciliation", PoolLedgerServer.GetReconciliation),
		unary("ReconcileAll", PoolLedgerServer.ReconcileAll),
		unary("IngestWebhook", PoolLedgerServer.IngestWebhook),
		unary("IssueCard", PoolLedgerServer.IssueCard),
		unary("IssueWidgetURL", PoolLedgerServer.IssueWidgetURL),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger/v1/pool_ledger",
}

// RegisterPoolLedgerServer 註冊服務
func RegisterPoolLedgerServer(s grpc.ServiceRegistrar, srv PoolLedgerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary[Req, Resp any](method string, call func(PoolLedgerServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PoolLedgerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(PoolLedgerServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
