package controller

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-verification/app/auth"
	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
	"github.com/vibast-solutions/ms-go-payment-verification/app/factory"
	"github.com/vibast-solutions/ms-go-payment-verification/app/mapper"
	"github.com/vibast-solutions/ms-go-payment-verification/app/service"
	"github.com/vibast-solutions/ms-go-payment-verification/app/types"
)

type PaymentController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) SubmitPayment(ctx echo.Context) error {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return writeUnauthenticated(ctx)
	}

	req, err := types.NewSubmitPaymentRequestFromContext(ctx)
	if err != nil {
		return writeBadRequest(ctx, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeBadRequest(ctx, err.Error())
	}

	item, err := c.paymentService.SubmitPayment(ctx.Request().Context(), actor, req)
	if err != nil {
		return writeServiceError(ctx, c.logger, "Submit payment", err)
	}

	return c.writePayment(ctx, http.StatusCreated, item)
}

func (c *PaymentController) GetPayment(ctx echo.Context) error {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return writeUnauthenticated(ctx)
	}

	req, err := types.NewIDRequestFromContext(ctx)
	if err != nil {
		return writeBadRequest(ctx, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeBadRequest(ctx, err.Error())
	}

	item, err := c.paymentService.ViewPayment(ctx.Request().Context(), actor, req.GetID())
	if err != nil {
		return writeServiceError(ctx, c.logger, "Get payment", err)
	}

	return c.writePayment(ctx, http.StatusOK, item)
}

// GetAppointmentPayment is the internal lookup used by appointment confirmation.
func (c *PaymentController) GetAppointmentPayment(ctx echo.Context) error {
	appointmentID := strings.TrimSpace(ctx.Param("appointmentId"))
	if appointmentID == "" {
		return writeBadRequest(ctx, "appointment id is required")
	}

	item, err := c.paymentService.GetAppointmentPayment(ctx.Request().Context(), appointmentID)
	if err != nil {
		return writeServiceError(ctx, c.logger, "Get appointment payment", err)
	}

	return c.writePayment(ctx, http.StatusOK, item)
}

func (c *PaymentController) ListPayments(ctx echo.Context) error {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return writeUnauthenticated(ctx)
	}

	req, err := types.NewListPaymentsRequestFromContext(ctx)
	if err != nil {
		return writeBadRequest(ctx, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeBadRequest(ctx, err.Error())
	}

	items, err := c.paymentService.ListPayments(ctx.Request().Context(), actor, req)
	if err != nil {
		return writeServiceError(ctx, c.logger, "List payments", err)
	}

	return ctx.JSON(http.StatusOK, &types.ListPaymentsResponse{Payments: mapper.PaymentsToProto(items)})
}

func (c *PaymentController) VerifyPayment(ctx echo.Context) error {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return writeUnauthenticated(ctx)
	}

	req, err := types.NewVerifyPaymentRequestFromContext(ctx)
	if err != nil {
		return writeBadRequest(ctx, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeBadRequest(ctx, err.Error())
	}

	item, err := c.paymentService.VerifyPayment(ctx.Request().Context(), actor, req)
	if err != nil {
		return writeServiceError(ctx, c.logger, "Verify payment", err)
	}

	return c.writePayment(ctx, http.StatusOK, item)
}

func (c *PaymentController) RequestRefund(ctx echo.Context) error {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return writeUnauthenticated(ctx)
	}

	req, err := types.NewRefundPaymentRequestFromContext(ctx)
	if err != nil {
		return writeBadRequest(ctx, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeBadRequest(ctx, err.Error())
	}

	item, err := c.paymentService.RequestRefund(ctx.Request().Context(), actor, req)
	if err != nil {
		return writeServiceError(ctx, c.logger, "Request refund", err)
	}

	return c.writePayment(ctx, http.StatusOK, item)
}

func (c *PaymentController) SettleRefund(ctx echo.Context) error {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return writeUnauthenticated(ctx)
	}

	req, err := types.NewIDRequestFromContext(ctx)
	if err != nil {
		return writeBadRequest(ctx, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeBadRequest(ctx, err.Error())
	}

	item, err := c.paymentService.SettleRefund(ctx.Request().Context(), actor, req.GetID())
	if err != nil {
		return writeServiceError(ctx, c.logger, "Settle refund", err)
	}

	return c.writePayment(ctx, http.StatusOK, item)
}

func (c *PaymentController) FailRefund(ctx echo.Context) error {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return writeUnauthenticated(ctx)
	}

	req, err := types.NewFailRefundRequestFromContext(ctx)
	if err != nil {
		return writeBadRequest(ctx, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeBadRequest(ctx, err.Error())
	}

	item, err := c.paymentService.FailRefund(ctx.Request().Context(), actor, req)
	if err != nil {
		return writeServiceError(ctx, c.logger, "Fail refund", err)
	}

	return c.writePayment(ctx, http.StatusOK, item)
}

// writePayment signs the receipt reference before responding. A signing failure
// degrades to the stored reference.
func (c *PaymentController) writePayment(ctx echo.Context, statusCode int, item *entity.Payment) error {
	receiptURL, err := c.paymentService.ReceiptURL(ctx.Request().Context(), item)
	if err != nil {
		c.logger.WithError(err).WithField("payment_id", item.ID).Warn("Resolve receipt url failed")
		receiptURL = ""
	}
	return ctx.JSON(statusCode, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToProto(item, receiptURL)})
}
