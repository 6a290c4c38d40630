package types

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	defaultListLimit = int32(100)
	maxListLimit     = int32(500)
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// IDRequest carries a numeric :id path parameter.
type IDRequest struct {
	ID uint64 `json:"id"`
}

func NewIDRequestFromContext(ctx echo.Context) (*IDRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}
	return &IDRequest{ID: id}, nil
}

func (r *IDRequest) GetID() uint64 {
	return r.ID
}

func (r *IDRequest) Validate() error {
	if r.GetID() == 0 {
		return errors.New("invalid id")
	}
	return nil
}

func parseIDParam(ctx echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
}

func parsePage(ctx echo.Context) (int32, int32, error) {
	limit := defaultListLimit
	offset := int32(0)

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		parsed, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return 0, 0, err
		}
		limit = int32(parsed)
	}
	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		parsed, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return 0, 0, err
		}
		offset = int32(parsed)
	}

	return limit, offset, nil
}

func validatePage(limit, offset int32) error {
	if limit <= 0 || limit > maxListLimit {
		return errors.New("limit must be between 1 and 500")
	}
	if offset < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}

// bindOptional binds a body that may legitimately be empty.
func bindOptional(ctx echo.Context, dst interface{}) error {
	if err := ctx.Bind(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
