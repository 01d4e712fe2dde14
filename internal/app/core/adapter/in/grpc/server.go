package grpc

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-pool-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-pool-ledger/internal/app/core/usecase"
)

// GrpcServer 將 gRPC 請求轉給 CoreUseCase
type GrpcServer struct {
	core *usecase.CoreUseCase
}

var _ PoolLedgerServer = (*GrpcServer)(nil)

func NewGrpcServer(core *usecase.CoreUseCase) *GrpcServer {
	return &GrpcServer{
		core: core,
	}
}

func (s *GrpcServer) PostDeposit(ctx context.Context, req *DepositRequest) (*PostingResponse, error) {
	res, err := s.core.PostDeposit(ctx, req.WalletID, req.DepositCommand)
	if err != nil {
		return nil, toStatus(err)
	}
	return toPostingResponse(res), nil
}

func (s *GrpcServer) PostCapture(ctx context.Context, req *CaptureRequest) (*PostingResponse, error) {
	res, err := s.core.PostCapture(ctx, req.WalletID, req.CaptureCommand)
	if err != nil {
		return nil, toStatus(err)
	}
	return toPostingResponse(res), nil
}

func (s *GrpcServer) RequestWithdrawal(ctx context.Context, req *WithdrawalRequest) (*PostingResponse, error) {
	res, err := s.core.RequestWithdrawal(ctx, req.WalletID, req.WithdrawalCommand)
	if err != nil {
		return nil, toStatus(err)
	}
	return toPostingResponse(res), nil
}

func (s *GrpcServer) FinalizeWithdrawal(ctx context.Context, req *ResolveRequest) (*PostingResponse, error) {
	res, err := s.core.FinalizeWithdrawal(ctx, req.WalletID, req.ResolveCommand)
	if err != nil {
		return nil, toStatus(err)
	}
	return toPostingResponse(res), nil
}

func (s *GrpcServer) ReverseWithdrawal(ctx context.Context, req *ResolveRequest) (*PostingResponse, error) {
	res, err := s.core.ReverseWithdrawal(ctx, req.WalletID, req.ResolveCommand)
	if err != nil {
		return nil, toStatus(err)
	}
	return toPostingResponse(res), nil
}

func (s *GrpcServer) GetCardBalances(ctx context.Context, req *CardBalancesRequest) (*domain.CardDisplayBalances, error) {
	view, err := s.core.GetCardBalances(ctx, req.WalletID, req.CardID)
	if err != nil {
		return nil, toStatus(err)
	}
	return view, nil
}

func (s *GrpcServer) GetWalletBalances(ctx context.Context, req *WalletBalancesRequest) (*domain.AggregatedWalletBalances, error) {
	view, err := s.core.GetWalletBalances(ctx, req.WalletID)
	if err != nil {
		return nil, toStatus(err)
	}
	return view, nil
}

func (s *GrpcServer) GetReconciliation(ctx context.Context, req *ReconciliationRequest) (*domain.CardReconciliation, error) {
	report, err := s.core.GetReconciliation(ctx, req.CardID)
	if err != nil {
		return nil, toStatus(err)
	}
	return report, nil
}

func (s *GrpcServer) ReconcileAll(ctx context.Context, _ *ReconcileAllRequest) (*ReconcileAllResponse, error) {
	reports, err := s.core.ReconcileAll(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ReconcileAllResponse{Reports: reports}, nil
}

func (s *GrpcServer) IngestWebhook(ctx context.Context, req *WebhookRequest) (*PostingResponse, error) {
	res, err := s.core.IngestWebhook(ctx, req.Payload, req.Signature)
	if err != nil {
		return nil, toStatus(err)
	}
	return toPostingResponse(res), nil
}

func (s *GrpcServer) IssueCard(ctx context.Context, req *IssueCardRequest) (*domain.IssuedCard, error) {
	card, err := s.core.IssueCard(ctx, req.WalletID)
	if err != nil {
		return nil, toStatus(err)
	}
	return card, nil
}

func (s *GrpcServer) IssueWidgetURL(ctx context.Context, req *WidgetURLRequest) (*WidgetURLResponse, error) {
	url, err := s.core.IssueWidgetURL(ctx, req.WalletID, req.CardID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &WidgetURLResponse{URL: url}, nil
}

// codeMapping 依序比對，具體錯誤排在 ErrStorageFailure 之前
var codeMapping = []struct {
	err  error
	code codes.Code
}{
	{domain.ErrInvalidCommand, codes.InvalidArgument},
	{domain.ErrAmountMustBePositive, codes.InvalidArgument},
	{domain.ErrInvalidSplit, codes.InvalidArgument},
	{domain.ErrWithdrawalNotFound, codes.NotFound},
	{domain.ErrWalletNotFound, codes.NotFound},
	{domain.ErrWalletMismatch, codes.PermissionDenied},
	{domain.ErrUnknownMember, codes.PermissionDenied},
	{domain.ErrInsufficientPoolBalance, codes.FailedPrecondition},
	{domain.ErrInsufficientAvailableBalance, codes.FailedPrecondition},
	{domain.ErrInvalidStateTransition, codes.FailedPrecondition},
	{domain.ErrBalanceOverflow, codes.FailedPrecondition},
	{domain.ErrInvalidSignature, codes.Unauthenticated},
	{domain.ErrProviderUnsupported, codes.Unimplemented},
	{domain.ErrLockTimeout, codes.Unavailable},
	{context.DeadlineExceeded, codes.DeadlineExceeded},
	{context.Canceled, codes.Canceled},
	{domain.ErrStorageFailure, codes.Internal},
}

// toStatus domain 錯誤轉 gRPC status，無法辨識的錯誤視為 Internal
func toStatus(err error) error {
	for _, m := range codeMapping {
		if errors.Is(err, m.err) {
			return status.Error(m.code, err.Error())
		}
	}
	return status.Error(codes.Internal, err.Error())
}

// LoggingInterceptor 記錄每個請求的方法、結果碼與耗時
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("elapsed", time.Since(start)),
		}
		switch code {
		case codes.OK:
			logger.Debug("grpc request", fields...)
		case codes.Internal, codes.Unavailable:
			logger.Error("grpc request failed", append(fields, zap.Error(err))...)
		default:
			logger.Info("grpc request rejected", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}
