package hooks

import (
	"github.com/ether/revlog/lib/hooks/events"
	uuid2 "github.com/google/uuid"
)

// Hook fans events out to registered callbacks. Callbacks are registered
// during boot; the maps are not locked.
type Hook struct {
	hooks map[string]map[string]func(ctx any)
}

func NewHook() Hook {
	return Hook{
		hooks: make(map[string]map[string]func(ctx any)),
	}
}

func (h *Hook) EnqueueChangeSetAppendedHook(cb func(ctx *events.ChangeSetAppendedContext)) string {
	return h.EnqueueHook("changeSetAppended", func(ctx any) {
		if appendCtx, ok := ctx.(*events.ChangeSetAppendedContext); ok {
			cb(appendCtx)
		}
	})
}

func (h *Hook) ExecuteChangeSetAppendedHooks(ctx *events.ChangeSetAppendedContext) {
	h.ExecuteHooks("changeSetAppended", ctx)
}

func (h *Hook) EnqueueRecordRolledBackHook(cb func(ctx *events.RecordRolledBackContext)) string {
	return h.EnqueueHook("recordRolledBack", func(ctx any) {
		if rollbackCtx, ok := ctx.(*events.RecordRolledBackContext); ok {
			cb(rollbackCtx)
		}
	})
}

func (h *Hook) ExecuteRecordRolledBackHooks(ctx *events.RecordRolledBackContext) {
	h.ExecuteHooks("recordRolledBack", ctx)
}

func (h *Hook) EnqueueHook(key string, ctx func(ctx any)) string {
	var uuid = uuid2.New()
	var _, ok = h.hooks[key]

	if !ok {
		h.hooks[key] = make(map[string]func(ctx any))
	}

	h.hooks[key][uuid.String()] = ctx

	return uuid.String()
}

func (h *Hook) DequeueHook(key, id string) {
	delete(h.hooks[key], id)
}

func (h *Hook) ExecuteHooks(key string, ctx any) {

	var _, ok = h.hooks[key]

	if !ok {
		return
	}

	for _, v := range h.hooks[key] {
		v(ctx)
	}
}
