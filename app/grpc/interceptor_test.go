package grpc

import (
	"context"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var (
	getPaymentInfo        = &grpc.UnaryServerInfo{FullMethod: "/" + ServiceName + "/GetPayment"}
	getDisputeHistoryInfo = &grpc.UnaryServerInfo{FullMethod: "/" + ServiceName + "/GetDisputeHistory"}
)

func withRequestID(id string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDHeader, id))
}

func TestRequestIDFromMetadata(t *testing.T) {
	cases := map[string]struct {
		ctx  context.Context
		want string
	}{
		"present":     {ctx: withRequestID("verify-42"), want: "verify-42"},
		"trimmed":     {ctx: withRequestID("  verify-43 "), want: "verify-43"},
		"no metadata": {ctx: context.Background(), want: ""},
		"other keys":  {ctx: metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "k")), want: ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, requestIDFromMetadata(tc.ctx))
		})
	}
}

func TestRequestIDInterceptor(t *testing.T) {
	interceptor := RequestIDInterceptor()

	called := false
	_, err := interceptor(context.Background(), nil, getPaymentInfo, func(context.Context, interface{}) (interface{}, error) {
		called = true
		return nil, nil
	})
	require.Equal(t, codes.InvalidArgument, status.Code(err))
	require.False(t, called, "handler must not run without a request id")

	_, err = interceptor(withRequestID("dispute-7"), nil, getDisputeHistoryInfo, func(ctx context.Context, _ interface{}) (interface{}, error) {
		require.Equal(t, "dispute-7", RequestIDFromContext(ctx))
		return nil, nil
	})
	require.NoError(t, err)
}

func TestRecoveryInterceptorConvertsPanicToInternal(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	_, err := RecoveryInterceptor()(withRequestID("panic-1"), nil, getPaymentInfo, func(context.Context, interface{}) (interface{}, error) {
		panic("ledger row missing")
	})
	require.Equal(t, codes.Internal, status.Code(err))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, "grpc handler panicked", entry.Message)
	require.Equal(t, getPaymentInfo.FullMethod, entry.Data["method"])
}

func TestLoggingInterceptorRecordsCode(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	interceptor := LoggingInterceptor()
	ctx := context.WithValue(context.Background(), requestIDKey{}, "history-9")

	resp, err := interceptor(ctx, nil, getDisputeHistoryInfo, func(context.Context, interface{}) (interface{}, error) {
		return "timeline", nil
	})
	require.NoError(t, err)
	require.Equal(t, "timeline", resp)

	entry := hook.LastEntry()
	require.Equal(t, "grpc_request", entry.Message)
	require.Equal(t, codes.OK.String(), entry.Data["code"])
	require.Equal(t, "history-9", entry.Data["request_id"])

	_, err = interceptor(ctx, nil, getPaymentInfo, func(context.Context, interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "payment not found")
	})
	require.Equal(t, codes.NotFound, status.Code(err))
	require.Equal(t, codes.NotFound.String(), hook.LastEntry().Data["code"])
}
