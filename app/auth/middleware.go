package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
)

const actorContextKey = "actor"

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RequireActor rejects requests without a valid bearer token and stores the
// resolved actor on the echo context.
func RequireActor(parser *TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return ctx.JSON(http.StatusUnauthorized, errorBody{Error: "missing authorization header", Code: "UNAUTHENTICATED"})
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return ctx.JSON(http.StatusUnauthorized, errorBody{Error: "invalid authorization format", Code: "UNAUTHENTICATED"})
			}

			actor, err := parser.ParseActor(strings.TrimSpace(parts[1]))
			if err != nil {
				return ctx.JSON(http.StatusUnauthorized, errorBody{Error: "invalid or expired token", Code: "UNAUTHENTICATED"})
			}

			ctx.Set(actorContextKey, actor)
			return next(ctx)
		}
	}
}

func ActorFromContext(ctx echo.Context) (entity.Actor, bool) {
	actor, ok := ctx.Get(actorContextKey).(entity.Actor)
	if !ok || !actor.Valid() {
		return entity.Actor{}, false
	}
	return actor, true
}

// WithActor stores actor on ctx the same way RequireActor does.
func WithActor(ctx echo.Context, actor entity.Actor) {
	ctx.Set(actorContextKey, actor)
}
