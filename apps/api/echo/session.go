package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mutqin/backend/core/session"
)

type sessionApi struct {
	svc        *session.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerSessionAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *session.Service,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := sessionApi{svc: svc, validate: validate, translator: translator}

	sg := g.Group("/sessions", jwt)
	sg.POST("", api.book, learnerMiddleware())
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)
	sg.POST("/:id/checkout", api.checkout, learnerMiddleware())
	sg.POST("/:id/confirm", api.confirm, teacherMiddleware())
	sg.POST("/:id/start", api.start, teacherMiddleware())
	sg.POST("/:id/complete", api.complete, teacherMiddleware())
	sg.POST("/:id/cancel", api.cancel)
	sg.POST("/:id/no-show", api.markNoShow, teacherMiddleware())

	pg := g.Group("/payments", jwt)
	pg.GET("", api.queryPayments)
}

// Handlers

func (api *sessionApi) book(ctx echo.Context) error {
	var data session.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	data.LearnerID = claims.UserID()

	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	sess, err := api.svc.Book(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "booking session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *sessionApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var sessions []session.Session
	if claims.IsAdmin {
		sessions, err = api.svc.QueryAll(ctx.Request().Context())
	} else {
		sessions, err = api.svc.QueryByUser(ctx.Request().Context(), claims.UserID())
	}
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	sess, err := api.getOwnedSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) checkout(ctx echo.Context) error {
	var card session.CardDetails
	if err := ctx.Bind(&card); err != nil {
		return errors.Wrap(err, "binding to CardDetails")
	}
	if err := api.validate.Struct(&card); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	sess, err := api.getOwnedSession(ctx)
	if err != nil {
		return err
	}

	sess, pmt, err := api.svc.Checkout(ctx.Request().Context(), sess.ID, claims.UserID(), card)
	if errors.Cause(err) == session.ErrCardDeclined {
		return ctx.JSON(http.StatusPaymentRequired, echo.Map{
			"error":   session.ErrCardDeclined.Error(),
			"payment": pmt,
		})
	}
	if err != nil {
		return errors.Wrap(err, "checking out session")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"session": sess,
		"payment": pmt,
	})
}

func (api *sessionApi) confirm(ctx echo.Context) error {
	return api.transition(ctx, api.svc.Confirm)
}

func (api *sessionApi) start(ctx echo.Context) error {
	return api.transition(ctx, api.svc.Start)
}

func (api *sessionApi) complete(ctx echo.Context) error {
	return api.transition(ctx, api.svc.Complete)
}

func (api *sessionApi) cancel(ctx echo.Context) error {
	return api.transition(ctx, api.svc.Cancel)
}

func (api *sessionApi) markNoShow(ctx echo.Context) error {
	return api.transition(ctx, api.svc.MarkNoShow)
}

func (api *sessionApi) queryPayments(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var payments []session.Payment
	if claims.IsAdmin {
		payments, err = api.svc.QueryAllPayments(ctx.Request().Context())
	} else {
		payments, err = api.svc.QueryPaymentsByLearner(ctx.Request().Context(), claims.UserID())
	}
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	return ctx.JSON(http.StatusOK, payments)
}

// getOwnedSession fetches the session in the path and checks that the caller
// is a party to it (or an admin).
func (api *sessionApi) getOwnedSession(ctx echo.Context) (session.Session, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "getting context claims")
	}

	sess, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return session.Session{}, errors.Wrap(err, "finding session")
	}
	if !claims.IsAdmin && sess.LearnerID != claims.UserID() && sess.TeacherID != claims.UserID() {
		return session.Session{}, errHttpForbidden
	}
	return sess, nil
}

func (api *sessionApi) transition(
	ctx echo.Context,
	move func(ctx context.Context, id string) (session.Session, error),
) error {
	sess, err := api.getOwnedSession(ctx)
	if err != nil {
		return err
	}
	sess, err = move(ctx.Request().Context(), sess.ID)
	if err != nil {
		return errors.Wrap(err, "moving session")
	}
	return ctx.JSON(http.StatusOK, sess)
}
