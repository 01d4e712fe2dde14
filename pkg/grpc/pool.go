package grpc

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// Pool 依目標地址共用 gRPC 連線，每個地址只保留一條
type Pool struct {
	conns       sync.Map // map[string]*grpc.ClientConn
	mu          sync.Mutex
	interceptor grpc.UnaryClientInterceptor
	callOpts    []grpc.CallOption
	keepalive   time.Duration
	logger      *zap.Logger
}

// PoolOption Pool 設定
type PoolOption func(*Pool)

// WithInterceptor 所有連線共用的 UnaryClientInterceptor
func WithInterceptor(interceptor grpc.UnaryClientInterceptor) PoolOption {
	return func(p *Pool) {
		p.interceptor = interceptor
	}
}

// WithCallOptions 每次呼叫預設帶上的選項，例如 grpc.CallContentSubtype
func WithCallOptions(opts ...grpc.CallOption) PoolOption {
	return func(p *Pool) {
		p.callOpts = append(p.callOpts, opts...)
	}
}

// WithKeepalive 閒置時 ping 的間隔
func WithKeepalive(d time.Duration) PoolOption {
	return func(p *Pool) {
		p.keepalive = d
	}
}

// WithLogger 記錄連線建立，預設不輸出
func WithLogger(logger *zap.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

// NewPool 建立連線池
func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{keepalive: 10 * time.Second, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetConnection 取得既有連線，沒有或已關閉時建立新的
//
// 參數:
//
//	target: 服務地址 (e.g., "localhost:50051")
//	opts: 額外的 DialOption，會接在預設值之後
//
// 回傳值:
//
//	*grpc.ClientConn: 連線 (lazy，第一次呼叫才真正連線)
//	error: 建立失敗
func (p *Pool) GetConnection(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if conn, ok := p.load(target); ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok := p.load(target); ok {
		return conn, nil
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                p.keepalive,
			Timeout:             time.Second,
			PermitWithoutStream: true,
		}),
	}
	if len(p.callOpts) > 0 {
		dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(p.callOpts...))
	}
	if p.interceptor != nil {
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(p.interceptor))
	}
	dialOpts = append(dialOpts, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for target %s: %w", target, err)
	}
	p.logger.Debug("grpc client created", zap.String("target", target))
	p.conns.Store(target, conn)
	return conn, nil
}

// load 已 Shutdown 的連線會被移除
func (p *Pool) load(target string) (*grpc.ClientConn, bool) {
	v, ok := p.conns.Load(target)
	if !ok {
		return nil, false
	}
	conn := v.(*grpc.ClientConn)
	if conn.GetState() == connectivity.Shutdown {
		p.conns.Delete(target)
		return nil, false
	}
	return conn, true
}

// Close 關閉所有連線，回傳第一個錯誤
func (p *Pool) Close() error {
	var firstErr error
	p.conns.Range(func(key, value any) bool {
		conn := value.(*grpc.ClientConn)
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.conns.Delete(key)
		return true
	})
	return firstErr
}
