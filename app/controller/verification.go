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

type VerificationController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewVerificationController(paymentService *service.PaymentService) *VerificationController {
	return &VerificationController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("verifications-controller"),
	}
}

func (c *VerificationController) ListQueue(ctx echo.Context) error {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return writeUnauthenticated(ctx)
	}

	req, err := types.NewListQueueRequestFromContext(ctx)
	if err != nil {
		return writeBadRequest(ctx, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeBadRequest(ctx, err.Error())
	}

	items, err := c.paymentService.ListQueue(ctx.Request().Context(), actor, req)
	if err != nil {
		return writeServiceError(ctx, c.logger, "List verification queue", err)
	}

	return ctx.JSON(http.StatusOK, &types.ListVerificationsResponse{Verifications: mapper.VerificationsToProto(items)})
}

func (c *VerificationController) GetVerification(ctx echo.Context) error {
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

	item, err := c.paymentService.GetVerification(ctx.Request().Context(), actor, req.GetID())
	if err != nil {
		return writeServiceError(ctx, c.logger, "Get verification", err)
	}

	return ctx.JSON(http.StatusOK, &types.VerificationEnvelopeResponse{Verification: mapper.VerificationToProto(item)})
}

func (c *VerificationController) ClaimNext(ctx echo.Context) error {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return writeUnauthenticated(ctx)
	}

	item, err := c.paymentService.ClaimNext(ctx.Request().Context(), actor)
	if err != nil {
		return writeServiceError(ctx, c.logger, "Claim next verification", err)
	}

	return ctx.JSON(http.StatusOK, &types.VerificationEnvelopeResponse{Verification: mapper.VerificationToProto(item)})
}

func (c *VerificationController) Claim(ctx echo.Context) error {
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

	item, err := c.paymentService.Claim(ctx.Request().Context(), actor, req.GetID())
	if err != nil {
		return writeServiceError(ctx, c.logger, "Claim verification", err)
	}

	return ctx.JSON(http.StatusOK, &types.VerificationEnvelopeResponse{Verification: mapper.VerificationToProto(item)})
}

func (c *VerificationController) Decide(ctx echo.Context) error {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return writeUnauthenticated(ctx)
	}

	req, err := types.NewDecideVerificationRequestFromContext(ctx)
	if err != nil {
		return writeBadRequest(ctx, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeBadRequest(ctx, err.Error())
	}

	item, err := c.paymentService.Decide(ctx.Request().Context(), actor, req)
	if err != nil {
		return writeServiceError(ctx, c.logger, "Decide verification", err)
	}

	return ctx.JSON(http.StatusOK, &types.VerificationEnvelopeResponse{Verification: mapper.VerificationToProto(item)})
}

func (c *VerificationController) Release(ctx echo.Context) error {
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

	item, err := c.paymentService.Release(ctx.Request().Context(), actor, req.GetID())
	if err != nil {
		return writeServiceError(ctx, c.logger, "Release verification", err)
	}

	return ctx.JSON(http.StatusOK, &types.VerificationEnvelopeResponse{Verification: mapper.VerificationToProto(item)})
}
