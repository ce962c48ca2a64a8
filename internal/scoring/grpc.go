package scoring

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region constants

// ScoreMethod is the unary RPC the scoring service exposes. Request and
// response are google.protobuf.Struct messages.
const ScoreMethod = "/scoring.v1.Scorer/Score"

// #endregion constants

// #region client-struct

// invoker is the slice of *grpc.ClientConn the client needs.
type invoker interface {
	Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error
}

// GRPCClient scores rows over a gRPC connection to the inference service.
type GRPCClient struct {
	conn    *grpc.ClientConn
	inv     invoker
	timeout time.Duration
}

// #endregion client-struct

// #region constructor

// NewGRPCClient connects to the scoring gRPC server. timeout bounds each call;
// zero leaves only the caller's deadline.
func NewGRPCClient(addr string, timeout time.Duration) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &GRPCClient{conn: conn, inv: conn, timeout: timeout}, nil
}

// NewGRPCClientWithInvoker creates a client over an injected invoker.
// Used for testing without a real gRPC connection.
func NewGRPCClientWithInvoker(inv invoker, timeout time.Duration) *GRPCClient {
	return &GRPCClient{inv: inv, timeout: timeout}
}

// #endregion constructor

// #region close

// Close shuts down the gRPC connection.
func (c *GRPCClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region score

// Score sends one feature map and decodes {prediction, confidence}.
func (c *GRPCClient) Score(ctx context.Context, features Features) (Prediction, error) {
	req, err := structpb.NewStruct(features.Map())
	if err != nil {
		return Prediction{}, permanent(fmt.Errorf("encode features: %w", err))
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp := &structpb.Struct{}
	if err := c.inv.Invoke(callCtx, ScoreMethod, req, resp); err != nil {
		return Prediction{}, classifyRPC(ctx, err)
	}
	return decodeStruct(resp)
}

func decodeStruct(resp *structpb.Struct) (Prediction, error) {
	fields := resp.GetFields()
	label, ok := numberField(fields, "prediction")
	if !ok {
		return Prediction{}, permanent(fmt.Errorf("score rpc: response missing numeric prediction"))
	}
	conf, ok := numberField(fields, "confidence")
	if !ok {
		return Prediction{}, permanent(fmt.Errorf("score rpc: response missing numeric confidence"))
	}
	p := Prediction{Label: int(label), Confidence: conf}
	if label != float64(p.Label) {
		return Prediction{}, permanent(fmt.Errorf("score rpc: prediction %v is not an integer", label))
	}
	if err := p.check(); err != nil {
		return Prediction{}, permanent(fmt.Errorf("score rpc: %w", err))
	}
	return p, nil
}

func numberField(fields map[string]*structpb.Value, name string) (float64, bool) {
	v, ok := fields[name]
	if !ok {
		return 0, false
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}
	return n.NumberValue, true
}

// #endregion score
