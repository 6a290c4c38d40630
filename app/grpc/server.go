package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/vibast-solutions/ms-go-payment-verification/app/mapper"
	"github.com/vibast-solutions/ms-go-payment-verification/app/service"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type Server struct {
	paymentService *service.PaymentService
}

func NewServer(paymentService *service.PaymentService) *Server {
	return &Server{paymentService: paymentService}
}

func (s *Server) GetPayment(ctx context.Context, req *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	if req.GetValue() == 0 {
		return nil, status.Error(codes.InvalidArgument, "invalid payment id")
	}

	item, err := s.paymentService.GetPayment(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(ctx, "Get payment", err)
	}

	return toStruct(mapper.PaymentToProto(item, ""))
}

func (s *Server) GetAppointmentPayment(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "appointment id is required")
	}

	item, err := s.paymentService.GetAppointmentPayment(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(ctx, "Get appointment payment", err)
	}

	return toStruct(mapper.PaymentToProto(item, ""))
}

func (s *Server) GetDisputeHistory(ctx context.Context, req *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	if req.GetValue() == 0 {
		return nil, status.Error(codes.InvalidArgument, "invalid dispute id")
	}

	timeline, err := s.paymentService.GetDisputeHistory(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(ctx, "Get dispute history", err)
	}

	return toStruct(mapper.TimelineToProto(timeline))
}

func toStatus(ctx context.Context, operation string, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case service.IsConflict(err):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		loggerWithContext(ctx).WithError(err).Errorf("%s failed", operation)
		return status.Error(codes.Internal, "internal server error")
	}
}

// toStruct converts a response DTO through its JSON form so field names match the HTTP API.
func toStruct(value interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}

	fields := map[string]interface{}{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}

	result, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return result, nil
}
