package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "verification.PaymentVerificationService"

// PaymentVerificationServiceServer is the internal read API other services call.
// Messages are protobuf well-known types so callers need no generated stubs.
type PaymentVerificationServiceServer interface {
	GetPayment(ctx context.Context, req *wrapperspb.UInt64Value) (*structpb.Struct, error)
	GetAppointmentPayment(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	GetDisputeHistory(ctx context.Context, req *wrapperspb.UInt64Value) (*structpb.Struct, error)
}

var PaymentVerificationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PaymentVerificationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetPayment", Handler: getPaymentHandler},
		{MethodName: "GetAppointmentPayment", Handler: getAppointmentPaymentHandler},
		{MethodName: "GetDisputeHistory", Handler: getDisputeHistoryHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "payment_verification.proto",
}

func RegisterPaymentVerificationServiceServer(registrar grpc.ServiceRegistrar, srv PaymentVerificationServiceServer) {
	registrar.RegisterService(&PaymentVerificationServiceDesc, srv)
}

func getPaymentHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.UInt64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PaymentVerificationServiceServer).GetPayment(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetPayment"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PaymentVerificationServiceServer).GetPayment(ctx, req.(*wrapperspb.UInt64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func getAppointmentPaymentHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PaymentVerificationServiceServer).GetAppointmentPayment(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetAppointmentPayment"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PaymentVerificationServiceServer).GetAppointmentPayment(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getDisputeHistoryHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.UInt64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PaymentVerificationServiceServer).GetDisputeHistory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetDisputeHistory"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PaymentVerificationServiceServer).GetDisputeHistory(ctx, req.(*wrapperspb.UInt64Value))
	}
	return interceptor(ctx, in, info, handler)
}
