package lib

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ether/revlog/lib/db"
	"github.com/ether/revlog/lib/history"
	"github.com/ether/revlog/lib/hooks"
	"github.com/ether/revlog/lib/settings"
	"github.com/ether/revlog/lib/ws"
)

// InitStore bundles everything the route initializers need.
type InitStore struct {
	C                 *fiber.App
	RetrievedSettings *settings.Settings
	Store             db.DataStore
	Manager           *history.Manager
	Hub               *ws.Hub
	Validator         *validator.Validate
	Logger            *zap.SugaredLogger
	Hooks             *hooks.Hook
}
