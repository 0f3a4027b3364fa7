package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/ether/revlog/lib"
	api2 "github.com/ether/revlog/lib/api"
	"github.com/ether/revlog/lib/history"
	"github.com/ether/revlog/lib/hooks"
	"github.com/ether/revlog/lib/hooks/events"
	settings2 "github.com/ether/revlog/lib/settings"
	"github.com/ether/revlog/lib/utils"
	"github.com/ether/revlog/lib/ws"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func InitServer(setupLogger *zap.SugaredLogger) {

	settings2.InitSettings(setupLogger)

	var settings = settings2.Displayed
	validatorEvaluator := validator.New(validator.WithRequiredStructEnabled())

	retrievedHooks := hooks.NewHook()

	gitVersion := settings2.GitVersion()
	setupLogger.Info("Starting Revlog...")
	setupLogger.Info("Report bugs at https://github.com/ether/revlog/issues")
	setupLogger.Info("Your Revlog version is " + gitVersion)

	dataStore, err := utils.GetDB(settings, setupLogger)
	if err != nil {
		setupLogger.Fatal("Error connecting to database: " + err.Error())
		return
	}

	manager, err := history.NewManager(dataStore, &settings, setupLogger, &retrievedHooks)
	if err != nil {
		setupLogger.Fatal("Error preparing the history manager: " + err.Error())
		return
	}

	hub := ws.NewHub()
	go hub.Run()
	AnnounceChanges(hub, &retrievedHooks, setupLogger)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	api2.InitAPI(&lib.InitStore{
		C:                 app,
		RetrievedSettings: &settings,
		Store:             dataStore,
		Manager:           manager,
		Hub:               hub,
		Validator:         validatorEvaluator,
		Logger:            setupLogger,
		Hooks:             &retrievedHooks,
	})

	app.Get("/api/collections/:collection/records/:recordId/changes", func(c *fiber.Ctx) error {
		collection := c.Params("collection")
		recordId := c.Params("recordId")
		return adaptor.HTTPHandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			q := request.URL.Query()
			q.Set("collection", collection)
			q.Set("recordId", recordId)
			request.URL.RawQuery = q.Encode()
			ws.ServeWs(hub, writer, request, &settings, setupLogger)
		})(c)
	})

	StartUpdateRoutine(setupLogger, gitVersion)

	fiberString := fmt.Sprintf("%s:%s", settings.IP, settings.Port)
	setupLogger.Info("Listening on " + fiberString)
	err = app.Listen(fiberString)
	if err != nil {
		setupLogger.Error("Error starting server: " + err.Error())
		os.Exit(1)
	}
}

// AnnounceChanges pushes every appended change set and every rollback into
// the room of the record it belongs to.
func AnnounceChanges(hub *ws.Hub, retrievedHooks *hooks.Hook, logger *zap.SugaredLogger) {
	retrievedHooks.EnqueueChangeSetAppendedHook(func(ctx *events.ChangeSetAppendedContext) {
		message, err := json.Marshal(ws.ChangeSetAppendedMessage{
			Type:       "changeSetAppended",
			Collection: ctx.Collection,
			RecordId:   ctx.ChangeSet.ParentId,
			Version:    ctx.ChangeSet.Version,
			CreatedAt:  ctx.ChangeSet.CreatedAt,
			Operations: ctx.ChangeSet.Operations,
			Metadata:   ctx.ChangeSet.Metadata,
		})
		if err != nil {
			logger.Warnf("Failed to encode change set notification: %v", err)
			return
		}
		hub.Broadcast <- ws.BroadcastMessage{
			Room: ws.RoomId(ctx.Collection, ctx.ChangeSet.ParentId),
			Data: message,
		}
	})

	retrievedHooks.EnqueueRecordRolledBackHook(func(ctx *events.RecordRolledBackContext) {
		message, err := json.Marshal(ws.RecordRolledBackMessage{
			Type:           "recordRolledBack",
			Collection:     ctx.Collection,
			RecordId:       ctx.RecordId,
			RemovedVersion: ctx.RemovedVersion,
			NewVersion:     ctx.NewVersion,
			Deleted:        ctx.Deleted,
		})
		if err != nil {
			logger.Warnf("Failed to encode rollback notification: %v", err)
			return
		}
		hub.Broadcast <- ws.BroadcastMessage{
			Room: ws.RoomId(ctx.Collection, ctx.RecordId),
			Data: message,
		}
	})
}
