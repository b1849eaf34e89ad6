package echoapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mutqin/backend/core"
	storedb "github.com/mutqin/backend/storage/store"
)

// syncApi exposes raw collection snapshots for peer instances to pull from
// and push to. It reads and writes the local backend directly, bypassing the
// mirror, so two instances pointing at each other do not loop.
type syncApi struct {
	local core.KVStore
}

func registerSyncAPI(g *echo.Group, jwt echo.MiddlewareFunc, local core.KVStore) {
	api := syncApi{local: local}

	sg := g.Group("/sync", jwt, adminMiddleware())
	sg.GET("/:collection", api.fetch)
	sg.PUT("/:collection", api.push)
}

func (api *syncApi) fetch(ctx echo.Context) error {
	collection := ctx.Param("collection")
	if !storedb.IsCollection(collection) {
		return errHttpNotFound
	}

	value, ok, err := api.local.Get(collection)
	if err != nil {
		return errors.Wrapf(err, "reading collection %q", collection)
	}
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSONBlob(http.StatusOK, value)
}

func (api *syncApi) push(ctx echo.Context) error {
	collection := ctx.Param("collection")
	if !storedb.IsCollection(collection) {
		return errHttpNotFound
	}

	value, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading request body")
	}
	if !json.Valid(value) {
		return echo.NewHTTPError(http.StatusBadRequest, "body is not valid JSON")
	}

	if err := api.local.Set(collection, value); err != nil {
		return errors.Wrapf(err, "writing collection %q", collection)
	}
	return ctx.NoContent(http.StatusNoContent)
}
