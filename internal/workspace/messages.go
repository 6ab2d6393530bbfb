package workspace

import (
	"github.com/ziadkadry99/feedback-coach/internal/backend"
	"github.com/ziadkadry99/feedback-coach/internal/notify"
)

// User-facing messages for failures that are not the backend's own detail.
const (
	ConnectionMessage     = "Connection error. Please try again."
	TimeoutMessage        = "Request timed out. Please try again."
	SessionExpiredMessage = "Session expired. Please log in again."
)

// Message turns err into the text shown to the user. fallback is used when
// the backend gave no detail.
func Message(err error, fallback string) string {
	switch backend.Classify(err) {
	case backend.KindNone:
		return ""
	case backend.KindNoSession, backend.KindUnauthorized:
		return SessionExpiredMessage
	case backend.KindTimeout:
		return TimeoutMessage
	case backend.KindNetwork:
		return ConnectionMessage
	case backend.KindOther:
		return fallback
	}
	if detail := backend.Detail(err); detail != "" {
		return detail
	}
	return fallback
}

func (c *Controller) report(err error, fallback string) {
	c.notifier.Notify(notify.Error, Message(err, fallback))
}

// reportPrefixed reports backend rejections as prefix + detail and
// everything else as report does.
func (c *Controller) reportPrefixed(err error, prefix, fallback string) {
	switch backend.Classify(err) {
	case backend.KindBadRequest, backend.KindNotFound, backend.KindServer:
		c.notifier.Notify(notify.Error, prefix+backend.Detail(err))
	default:
		c.report(err, fallback)
	}
}

// reportSession notifies an expired session. It reports whether err was one.
func (c *Controller) reportSession(err error) bool {
	switch backend.Classify(err) {
	case backend.KindNoSession, backend.KindUnauthorized:
		c.notifier.Notify(notify.Error, SessionExpiredMessage)
		return true
	}
	return false
}
