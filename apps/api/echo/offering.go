package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mutqin/backend/core/application"
	"github.com/mutqin/backend/core/offering"
)

type offeringApi struct {
	svc        *offering.Service
	appSvc     *application.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerOfferingAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *offering.Service,
	appSvc *application.Service,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := offeringApi{
		svc:        svc,
		appSvc:     appSvc,
		validate:   validate,
		translator: translator,
	}

	og := g.Group("/services", jwt)
	og.POST("", api.propose, teacherMiddleware())
	og.GET("", api.query)
	og.GET("/:id", api.retrieve)
	og.POST("/:id/review", api.review, adminMiddleware())
}

// Handlers

func (api *offeringApi) propose(ctx echo.Context) error {
	var data offering.NewOffering
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOffering")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	data.TeacherID = claims.UserID()

	// only vetted teachers may list services
	approved, err := api.appSvc.IsApprovedTeacher(ctx.Request().Context(), data.TeacherID)
	if err != nil {
		return errors.Wrap(err, "checking teacher approval")
	}
	if !approved {
		return errHttpForbidden
	}

	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	off, err := api.svc.Propose(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "proposing service")
	}
	return ctx.JSON(http.StatusCreated, off)
}

func (api *offeringApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var offs []offering.Offering
	switch {
	case claims.IsAdmin:
		offs, err = api.svc.QueryAll(ctx.Request().Context())
	case claims.IsTeacher:
		offs, err = api.svc.QueryByTeacher(ctx.Request().Context(), claims.UserID())
	default:
		offs, err = api.svc.QueryBookable(ctx.Request().Context())
	}
	if err != nil {
		return errors.Wrap(err, "querying services")
	}
	return ctx.JSON(http.StatusOK, offs)
}

func (api *offeringApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	off, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding service")
	}
	// learners only see bookable listings
	if !claims.IsAdmin && off.TeacherID != claims.UserID() && !off.Bookable() {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, off)
}

func (api *offeringApi) review(ctx echo.Context) error {
	var data offering.ReviewOffering
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewOffering")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	off, err := api.svc.Review(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing service")
	}
	return ctx.JSON(http.StatusOK, off)
}
