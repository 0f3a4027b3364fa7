package records

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ether/revlog/lib"
	"github.com/ether/revlog/lib/api/constants"
	errors2 "github.com/ether/revlog/lib/api/errors"
	"github.com/ether/revlog/lib/history"
	"github.com/ether/revlog/lib/models/record"
	"github.com/ether/revlog/lib/patch"
	"github.com/ether/revlog/lib/utils"
)

// SaveRecordRequest represents the request to save a document as the next version
type SaveRecordRequest struct {
	Doc      map[string]any `json:"doc" validate:"required"`
	Metadata any            `json:"metadata"`
	// SuppressVersioning writes the document without creating a version
	SuppressVersioning bool `json:"suppressVersioning"`
}

// RecordResponse represents a record at a version
type RecordResponse struct {
	Id          string         `json:"id"`
	Version     *int           `json:"version"`
	VersionDate *int64         `json:"versionDate,omitempty"`
	Doc         map[string]any `json:"doc"`
}

// ChangeSetResponse represents one entry of a record's history
type ChangeSetResponse struct {
	Version    int         `json:"version"`
	Operations patch.Patch `json:"operations"`
	Metadata   any         `json:"metadata,omitempty"`
	CreatedAt  *int64      `json:"createdAt,omitempty"`
}

// RecordIdsResponse represents the response with all record ids of a collection
type RecordIdsResponse struct {
	RecordIds []string `json:"recordIds"`
}

// RollbackResponse represents the state after a rollback
type RollbackResponse struct {
	Deleted bool            `json:"deleted"`
	Record  *RecordResponse `json:"record,omitempty"`
}

// DiffResponse represents the difference between two versions
type DiffResponse struct {
	From       int         `json:"from"`
	To         int         `json:"to"`
	Operations patch.Patch `json:"operations"`
	Text       string      `json:"text"`
}

// SaveRecord godoc
// @Summary Save a record
// @Description Saves the document as the next version of the record and appends the change set that produced it
// @Tags Records
// @Accept json
// @Produce json
// @Param collection path string true "Collection name"
// @Param request body SaveRecordRequest true "Document and optional metadata"
// @Success 200 {object} RecordResponse
// @Failure 400 {object} errors.Error
// @Failure 409 {object} errors.Error
// @Failure 422 {object} errors.Error
// @Router /api/collections/{collection}/records [post]
func SaveRecord(initStore *lib.InitStore) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		var collection = ctx.Params("collection")

		var request SaveRecordRequest
		if err := ctx.BodyParser(&request); err != nil {
			return ctx.Status(400).JSON(errors2.InvalidRequestError)
		}
		if err := initStore.Validator.Struct(request); err != nil {
			return ctx.Status(422).JSON(errors2.ValidationError)
		}
		if id, ok := request.Doc["id"]; ok {
			if _, isString := id.(string); !isString {
				return ctx.Status(400).JSON(errors2.NewInvalidParamError("doc.id"))
			}
		}

		rec, err := initStore.Manager.Collection(collection).Save(record.Document(request.Doc), history.SaveOptions{
			Metadata:           request.Metadata,
			SuppressVersioning: request.SuppressVersioning,
		})
		if err != nil {
			return mapError(ctx, err)
		}
		return ctx.JSON(toRecordResponse(rec))
	}
}

// RollbackRecord godoc
// @Summary Roll back a record
// @Description Reverts the record to its previous version and removes the newest change set. Rolling back version 1 deletes the record.
// @Tags Records
// @Produce json
// @Param collection path string true "Collection name"
// @Param recordId path string true "Record ID"
// @Success 200 {object} RollbackResponse
// @Failure 404 {object} errors.Error
// @Failure 409 {object} errors.Error
// @Router /api/collections/{collection}/records/{recordId}/rollback [post]
func RollbackRecord(initStore *lib.InitStore) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		var collection = ctx.Params("collection")

		rec, err := initStore.Manager.Collection(collection).Record(ctx.Params("recordId"))
		if err != nil {
			return mapError(ctx, err)
		}

		result, err := initStore.Manager.Collection(collection).Rollback(rec)
		if err != nil {
			return mapError(ctx, err)
		}
		return ctx.JSON(RollbackResponse{
			Deleted: result.Deleted,
			Record:  toRecordResponse(result.Record),
		})
	}
}

// DiffRecordVersions godoc
// @Summary Diff two versions of a record
// @Description Computes the operations and a readable text diff between two reconstructed versions
// @Tags Records
// @Produce json
// @Param collection path string true "Collection name"
// @Param recordId path string true "Record ID"
// @Param from query int true "Version to diff from"
// @Param to query int true "Version to diff to"
// @Param format query string false "Set to text for a plain text response"
// @Success 200 {object} DiffResponse
// @Failure 400 {object} errors.Error
// @Failure 404 {object} errors.Error
// @Router /api/collections/{collection}/records/{recordId}/diff [get]
func DiffRecordVersions(initStore *lib.InitStore) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		var collection = ctx.Params("collection")
		var recordId = ctx.Params("recordId")

		var from = ctx.Query("from")
		if from == "" {
			return ctx.Status(400).JSON(errors2.NewMissingParamError("from"))
		}
		var to = ctx.Query("to")
		if to == "" {
			return ctx.Status(400).JSON(errors2.NewMissingParamError("to"))
		}

		fromNum, err := utils.CheckValidVersion(from)
		if err != nil {
			return ctx.Status(400).JSON(errors2.NewInvalidParamError("from"))
		}
		toNum, err := utils.CheckValidVersion(to)
		if err != nil {
			return ctx.Status(400).JSON(errors2.NewInvalidParamError("to"))
		}

		rec, err := initStore.Manager.Collection(collection).Record(recordId)
		if err != nil {
			return mapError(ctx, err)
		}

		ops, text, err := initStore.Manager.DiffVersions(collection, rec, *fromNum, *toNum)
		if err != nil {
			return mapError(ctx, err)
		}

		if ctx.Query("format") == "text" {
			ctx.Set(fiber.HeaderContentType, constants.ContentTypeTextPlain)
			return ctx.SendString(text)
		}
		return ctx.JSON(DiffResponse{
			From:       *fromNum,
			To:         *toNum,
			Operations: ops,
			Text:       text,
		})
	}
}

func toRecordResponse(rec *record.Record) *RecordResponse {
	if rec == nil {
		return nil
	}
	return &RecordResponse{
		Id:          rec.Id,
		Version:     rec.Version,
		VersionDate: rec.VersionDate,
		Doc:         rec.Doc,
	}
}

func toChangeSetResponses(changeSets []record.ChangeSet) []ChangeSetResponse {
	responses := make([]ChangeSetResponse, 0, len(changeSets))
	for _, cs := range changeSets {
		responses = append(responses, ChangeSetResponse{
			Version:    cs.Version,
			Operations: cs.Operations,
			Metadata:   cs.Metadata,
			CreatedAt:  cs.CreatedAt,
		})
	}
	return responses
}
