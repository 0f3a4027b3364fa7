package records

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ether/revlog/lib"
	errors2 "github.com/ether/revlog/lib/api/errors"
	"github.com/ether/revlog/lib/exception"
	"github.com/ether/revlog/lib/utils"
)

func mapError(ctx *fiber.Ctx, err error) error {
	var notFound *exception.RecordNotFoundError
	var invalidVersion *exception.InvalidVersionError
	var conflict *exception.VersionConflictError
	var noPrevious *exception.NoPreviousVersionError

	switch {
	case errors.As(err, &notFound):
		return ctx.Status(404).JSON(errors2.RecordNotFoundError)
	case errors.As(err, &invalidVersion):
		return ctx.Status(400).JSON(errors2.InvalidVersionError)
	case errors.As(err, &conflict):
		return ctx.Status(409).JSON(errors2.VersionConflictError)
	case errors.As(err, &noPrevious):
		return ctx.Status(409).JSON(errors2.NoPreviousVersionError)
	default:
		return ctx.Status(500).JSON(errors2.InternalServerError)
	}
}

func Init(store *lib.InitStore) {
	var manager = store.Manager

	store.C.Post("/api/collections/:collection/records", SaveRecord(store))

	store.C.Get("/api/collections/:collection/records", func(ctx *fiber.Ctx) error {
		ids, err := manager.Collection(ctx.Params("collection")).RecordIds()
		if err != nil {
			return ctx.Status(500).JSON(errors2.InternalServerError)
		}
		return ctx.JSON(RecordIdsResponse{RecordIds: ids})
	})

	store.C.Get("/api/collections/:collection/records/:recordId", func(ctx *fiber.Ctx) error {
		rec, err := manager.Collection(ctx.Params("collection")).Record(ctx.Params("recordId"))
		if err != nil {
			return mapError(ctx, err)
		}
		return ctx.JSON(toRecordResponse(rec))
	})

	store.C.Get("/api/collections/:collection/records/:recordId/versions/:version", func(ctx *fiber.Ctx) error {
		var collection = ctx.Params("collection")
		var recordId = ctx.Params("recordId")

		versionNum, err := utils.CheckValidVersion(ctx.Params("version"))
		if err != nil {
			return ctx.Status(400).JSON(errors2.InvalidVersionError)
		}

		rec, err := manager.Collection(collection).Record(recordId)
		if err != nil {
			return mapError(ctx, err)
		}

		versioned, err := manager.GetVersion(collection, rec, *versionNum)
		if err != nil {
			return mapError(ctx, err)
		}
		return ctx.JSON(toRecordResponse(versioned))
	})

	store.C.Get("/api/collections/:collection/records/:recordId/changesets", func(ctx *fiber.Ctx) error {
		var collection = ctx.Params("collection")
		var recordId = ctx.Params("recordId")

		_, err := manager.Collection(collection).Record(recordId)
		if err != nil {
			return mapError(ctx, err)
		}

		changeSets, err := manager.Collection(collection).ChangeSets(recordId)
		if err != nil {
			return mapError(ctx, err)
		}
		return ctx.JSON(toChangeSetResponses(changeSets))
	})

	store.C.Post("/api/collections/:collection/records/:recordId/rollback", RollbackRecord(store))

	store.C.Get("/api/collections/:collection/records/:recordId/diff", DiffRecordVersions(store))
}
