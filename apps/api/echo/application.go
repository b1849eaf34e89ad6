package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mutqin/backend/core/application"
)

type applicationApi struct {
	svc        *application.Service
	profileSvc *application.ProfileService
	validate   *validator.Validate
	translator ut.Translator
}

func registerApplicationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *application.Service,
	profileSvc *application.ProfileService,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := applicationApi{
		svc:        svc,
		profileSvc: profileSvc,
		validate:   validate,
		translator: translator,
	}

	ag := g.Group("/applications", jwt)
	ag.POST("", api.submit, teacherMiddleware())
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.POST("/:id/review", api.review, adminMiddleware())
	ag.POST("/:id/resubmit", api.resubmit, teacherMiddleware())

	pg := g.Group("/teachers/profile", jwt, teacherMiddleware())
	pg.GET("", api.retrieveProfile)
	pg.PUT("", api.saveProfile)
}

// Handlers

func (api *applicationApi) submit(ctx echo.Context) error {
	var data application.NewApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewApplication")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	// the applicant is whoever the token says
	data.TeacherID = claims.UserID()
	if data.TeacherName == "" {
		data.TeacherName = claims.Name
	}
	if data.Email == "" {
		data.Email = claims.Email
	}

	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	app, err := api.svc.Submit(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting application")
	}
	return ctx.JSON(http.StatusCreated, app)
}

func (api *applicationApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var apps []application.Application
	if claims.IsAdmin {
		apps, err = api.svc.QueryAll(ctx.Request().Context())
	} else {
		apps, err = api.svc.QueryByTeacher(ctx.Request().Context(), claims.UserID())
	}
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *applicationApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	app, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding application")
	}
	if !claims.IsAdmin && app.TeacherID != claims.UserID() {
		return errHttpForbidden
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) review(ctx echo.Context) error {
	var data application.ReviewApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewApplication")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	app, err := api.svc.Review(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) resubmit(ctx echo.Context) error {
	var data application.ResubmitApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResubmitApplication")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	app, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding application")
	}
	if !claims.IsAdmin && app.TeacherID != claims.UserID() {
		return errHttpForbidden
	}

	app, err = api.svc.Resubmit(ctx.Request().Context(), app.ID, data)
	if err != nil {
		return errors.Wrap(err, "resubmitting application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) retrieveProfile(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	profile, err := api.profileSvc.GetByTeacher(ctx.Request().Context(), claims.UserID())
	if err != nil {
		return errors.Wrap(err, "finding profile")
	}
	return ctx.JSON(http.StatusOK, profile)
}

func (api *applicationApi) saveProfile(ctx echo.Context) error {
	var data application.UpdateProfileSetup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfileSetup")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	profile, err := api.profileSvc.Save(ctx.Request().Context(), claims.UserID(), data)
	if err != nil {
		return errors.Wrap(err, "saving profile")
	}
	return ctx.JSON(http.StatusOK, profile)
}
