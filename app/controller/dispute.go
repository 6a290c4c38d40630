package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-verification/app/auth"
	"github.com/vibast-solutions/ms-go-payment-verification/app/factory"
	"github.com/vibast-solutions/ms-go-payment-verification/app/mapper"
	"github.com/vibast-solutions/ms-go-payment-verification/app/service"
	"github.com/vibast-solutions/ms-go-payment-verification/app/types"
)

type DisputeController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewDisputeController(paymentService *service.PaymentService) *DisputeController {
	return &DisputeController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("disputes-controller"),
	}
}

func (c *DisputeController) RaiseDispute(ctx echo.Context) error {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return writeUnauthenticated(ctx)
	}

	req, err := types.NewRaiseDisputeRequestFromContext(ctx)
	if err != nil {
		return writeBadRequest(ctx, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeBadRequest(ctx, err.Error())
	}

	item, err := c.paymentService.RaiseDispute(ctx.Request().Context(), actor, req)
	if err != nil {
		return writeServiceError(ctx, c.logger, "Raise dispute", err)
	}

	return ctx.JSON(http.StatusCreated, &types.DisputeEnvelopeResponse{Dispute: mapper.DisputeToProto(item)})
}

func (c *DisputeController) GetDispute(ctx echo.Context) error {
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

	item, err := c.paymentService.ViewDispute(ctx.Request().Context(), actor, req.GetID())
	if err != nil {
		return writeServiceError(ctx, c.logger, "Get dispute", err)
	}

	return ctx.JSON(http.StatusOK, &types.DisputeEnvelopeResponse{Dispute: mapper.DisputeToProto(item)})
}

func (c *DisputeController) EscalateDispute(ctx echo.Context) error {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return writeUnauthenticated(ctx)
	}

	req, err := types.NewEscalateDisputeRequestFromContext(ctx)
	if err != nil {
		return writeBadRequest(ctx, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeBadRequest(ctx, err.Error())
	}

	item, err := c.paymentService.EscalateDispute(ctx.Request().Context(), actor, req)
	if err != nil {
		return writeServiceError(ctx, c.logger, "Escalate dispute", err)
	}

	return ctx.JSON(http.StatusOK, &types.DisputeEnvelopeResponse{Dispute: mapper.DisputeToProto(item)})
}

func (c *DisputeController) ResolveDispute(ctx echo.Context) error {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return writeUnauthenticated(ctx)
	}

	req, err := types.NewResolveDisputeRequestFromContext(ctx)
	if err != nil {
		return writeBadRequest(ctx, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeBadRequest(ctx, err.Error())
	}

	item, err := c.paymentService.ResolveDispute(ctx.Request().Context(), actor, req)
	if err != nil {
		return writeServiceError(ctx, c.logger, "Resolve dispute", err)
	}

	return ctx.JSON(http.StatusOK, &types.DisputeEnvelopeResponse{Dispute: mapper.DisputeToProto(item)})
}

func (c *DisputeController) DisputeHistory(ctx echo.Context) error {
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

	timeline, err := c.paymentService.DisputeHistory(ctx.Request().Context(), actor, req.GetID())
	if err != nil {
		return writeServiceError(ctx, c.logger, "Get dispute history", err)
	}

	return ctx.JSON(http.StatusOK, mapper.TimelineToProto(timeline))
}
