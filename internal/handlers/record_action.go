package handlers

import (
	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/agentdevice/agent-device/internal/store"
)

// recordAction appends req as a replayable Action on sess, unless the
// session isn't recording or the request opted out via
// flags["noRecord"] (store.RecordAction enforces both).
func recordAction(d *Deps, sess *domain.Session, req domain.Request, result *domain.ActionResult) {
	store.RecordAction(sess, domain.Action{
		Timestamp:   d.Clock.Now(),
		Command:     req.Command,
		Positionals: req.Positionals,
		Flags:       req.Flags,
		Result:      result,
	})
}
