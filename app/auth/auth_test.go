package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vibast-solutions/ms-go-payment-verification/app/entity"
)

const testSecret = "test-secret"

func TestParseActorRoundTrip(t *testing.T) {
	token, err := IssueToken(testSecret, "clinic", entity.Actor{Kind: entity.ActorDoctor, ID: "doc-7"}, time.Hour)
	require.NoError(t, err)

	actor, err := NewTokenParser(testSecret, "clinic").ParseActor(token)
	require.NoError(t, err)
	require.Equal(t, entity.ActorDoctor, actor.Kind)
	require.Equal(t, "doc-7", actor.ID)
}

func TestParseActorRejects(t *testing.T) {
	valid, err := IssueToken(testSecret, "clinic", entity.Actor{Kind: entity.ActorStaff, ID: "staff-1"}, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, "clinic", entity.Actor{Kind: entity.ActorStaff, ID: "staff-1"}, -time.Minute)
	require.NoError(t, err)
	badRole, err := IssueToken(testSecret, "clinic", entity.Actor{Kind: "JANITOR", ID: "x"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		parser *TokenParser
		token  string
	}{
		{name: "wrong secret", parser: NewTokenParser("other", "clinic"), token: valid},
		{name: "wrong issuer", parser: NewTokenParser(testSecret, "elsewhere"), token: valid},
		{name: "expired", parser: NewTokenParser(testSecret, "clinic"), token: expired},
		{name: "unknown role", parser: NewTokenParser(testSecret, "clinic"), token: badRole},
		{name: "garbage", parser: NewTokenParser(testSecret, "clinic"), token: "not-a-jwt"},
		{name: "no secret configured", parser: NewTokenParser("", ""), token: valid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.parser.ParseActor(tc.token)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRequireActorMiddleware(t *testing.T) {
	parser := NewTokenParser(testSecret, "")
	token, err := IssueToken(testSecret, "", entity.Actor{Kind: entity.ActorPatient, ID: "patient-1"}, time.Hour)
	require.NoError(t, err)

	e := echo.New()
	handler := RequireActor(parser)(func(ctx echo.Context) error {
		actor, ok := ActorFromContext(ctx)
		require.True(t, ok)
		return ctx.String(http.StatusOK, actor.ID)
	})

	req := httptest.NewRequest(http.MethodGet, "/payments/1", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "patient-1", rec.Body.String())

	for _, header := range []string{"", "Token abc", "Bearer nope"} {
		req := httptest.NewRequest(http.MethodGet, "/payments/1", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		rec := httptest.NewRecorder()
		require.NoError(t, handler(e.NewContext(req, rec)))
		require.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestRoleAuthorizer(t *testing.T) {
	authz := NewRoleAuthorizer()
	staff := entity.Actor{Kind: entity.ActorStaff, ID: "s"}
	admin := entity.Actor{Kind: entity.ActorAdmin, ID: "a"}
	patient := entity.Actor{Kind: entity.ActorPatient, ID: "p"}

	require.NoError(t, authz.Authorize(staff, entity.ActorStaff))
	require.Error(t, authz.Authorize(staff, entity.ActorDoctor))
	require.NoError(t, authz.Authorize(admin, entity.ActorDoctor))
	require.NoError(t, authz.Authorize(patient, entity.ActorPatient))
	require.Error(t, authz.Authorize(patient, entity.ActorStaff))
	require.Error(t, authz.Authorize(entity.Actor{Kind: entity.ActorAdmin}, entity.ActorPatient))
}
