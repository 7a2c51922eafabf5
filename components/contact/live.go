// components/contact/live.go
//
// Live-validation websocket.
//
// One connection holds one form.State for its whole lifetime, so touched
// fields and the last Submission persist between messages exactly as they
// would in a browser-side form.  The client sends events and receives a
// full snapshot after each one:
//
//	→ {"type":"input","field":"firstName","value":"J"}
//	← {"type":"state","values":{…},"errors":[{"field":"firstName",…}],"count":1}
//
// Event types: input (set a value), touch (mark visited), submit, reset.
// An accepted submit carries "accepted":true and the new "submission".
// Sessions idle for longer than live.idle_timeout are closed with 1008.

package contact

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/yanizio/contactform/internal/config"
	"github.com/yanizio/contactform/internal/form"
	"github.com/yanizio/contactform/internal/logger"
	"github.com/yanizio/contactform/internal/metrics"
)

// writeTimeout caps a single snapshot write.
const writeTimeout = 5 * time.Second

// Event types accepted from clients.
const (
	EventInput  = "input"
	EventTouch  = "touch"
	EventSubmit = "submit"
	EventReset  = "reset"
)

// liveEvent is one client message.
type liveEvent struct {
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
}

// liveReply is one server message.  Type is "state" or "error".
type liveReply struct {
	Type       string           `json:"type"`
	Values     form.Values      `json:"values,omitempty"`
	Errors     form.Errors      `json:"errors"`
	Count      int              `json:"count"`
	Accepted   bool             `json:"accepted,omitempty"`
	Submission *form.Submission `json:"submission,omitempty"`
	Message    string           `json:"message,omitempty"`
}

func (c *Component) handleLive(w http.ResponseWriter, r *http.Request) {
	fd, ok := form.GetFormDef(FormID)
	if !ok {
		c.fail(w, r, fmt.Errorf("contact: form %s not registered", FormID))
		return
	}

	// The request context must not be used once the connection is hijacked.
	// Keep its values (logger, request info) without its cancellation.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	log := logger.FromContext(ctx)
	live := liveConfig()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: live.OriginPatterns,
	})
	if err != nil {
		log.Warnw("live session refused", "err", err)
		return
	}
	defer conn.CloseNow()

	metrics.LiveSessions.Inc()
	defer metrics.LiveSessions.Dec()
	log.Debugw("live session open")

	// Reading with a deadline would drop the connection without a close
	// frame, so idleness is enforced by a timer that closes with 1008.
	idle := time.AfterFunc(live.IdleTimeout, func() {
		log.Debugw("live session idle, closing")
		_ = conn.Close(websocket.StatusPolicyViolation, "idle timeout")
	})
	defer idle.Stop()

	s := form.NewState(fd)
	for {
		var ev liveEvent
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				log.Debugw("live session closed")
			default:
				log.Debugw("live session read failed", "err", err)
			}
			return
		}
		idle.Reset(live.IdleTimeout)

		reply := apply(ctx, s, ev)

		wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
		err := wsjson.Write(wctx, conn, reply)
		wcancel()
		if err != nil {
			log.Debugw("live session write failed", "err", err)
			return
		}
	}
}

// apply runs ev against s and returns the snapshot to send back.
func apply(ctx context.Context, s *form.State, ev liveEvent) liveReply {
	var err error
	accepted := false

	switch ev.Type {
	case EventInput:
		err = s.Set(ev.Field, ev.Value)
	case EventTouch:
		err = s.Touch(ev.Field)
	case EventSubmit:
		var sub form.Submission
		sub, err = s.Submit()
		form.Observe(ctx, s.Def(), sub, err)
		accepted = err == nil
		if form.IsValidationError(err) {
			err = nil // reported through the snapshot's errors
		}
	case EventReset:
		s.Reset()
	default:
		err = fmt.Errorf("unknown event type %q", ev.Type)
	}
	if err != nil {
		return liveReply{Type: "error", Errors: form.Errors{}, Message: err.Error()}
	}
	return snapshot(s, accepted)
}

// snapshot renders the visible state of s.
func snapshot(s *form.State, accepted bool) liveReply {
	errs := s.Errors()
	if errs == nil {
		errs = form.Errors{}
	}
	reply := liveReply{
		Type:     "state",
		Values:   s.Values(),
		Errors:   errs,
		Count:    len(errs),
		Accepted: accepted,
	}
	if sub, ok := s.Submission(); ok {
		reply.Submission = &sub
	}
	return reply
}

// liveConfig returns the live section of the current config, or defaults
// when nothing is loaded.
func liveConfig() config.Live {
	if cfg := config.Get(); cfg != nil {
		return cfg.Live
	}
	return config.Defaults().Live
}
