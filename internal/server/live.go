package server

import (
	"encoding/json"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/paramstate/internal/errors"
	"github.com/vango-dev/paramstate/internal/paramset"
	"github.com/vango-dev/paramstate/pkg/history"
	"github.com/vango-dev/paramstate/pkg/reactive"
)

const (
	liveReadTimeout  = 2 * time.Minute
	liveWriteTimeout = 10 * time.Second
)

// Frame types.
const (
	FrameHello      = "hello"
	FramePopState   = "popstate"
	FrameSet        = "set"
	FrameURLPush    = "url_push"
	FrameURLReplace = "url_replace"
	FrameState      = "state"
	FrameError      = "error"
	FramePing       = "ping"
	FramePong       = "pong"
)

// Frame is one live session message in either direction.
type Frame struct {
	Type     string          `json:"type"`
	Session  string          `json:"session,omitempty"`
	Location string          `json:"location,omitempty"`
	Name     string          `json:"name,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
	Values   map[string]any  `json:"values,omitempty"`
	Code     string          `json:"code,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// liveHistory is the History of a live session. Push and Replace are
// forwarded to the client, which owns the real address bar; popstate frames
// move it back.
type liveHistory struct {
	mu        sync.Mutex
	loc       history.Location
	send      func(Frame)
	listeners history.Listeners
}

var _ history.History = (*liveHistory)(nil)

func (h *liveHistory) Location() history.Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loc
}

func (h *liveHistory) Push(search string) {
	h.navigate(search, history.ActionPush, FrameURLPush)
}

func (h *liveHistory) Replace(search string) {
	h.navigate(search, history.ActionReplace, FrameURLReplace)
}

func (h *liveHistory) navigate(search string, action history.Action, frameType string) {
	h.mu.Lock()
	h.loc.Search = search
	loc := h.loc
	h.mu.Unlock()

	h.send(Frame{Type: frameType, Location: loc.String()})
	h.listeners.Emit(loc, action)
}

// pop records a client-side navigation.
func (h *liveHistory) pop(raw string) {
	loc := history.ParseLocation(raw)
	h.mu.Lock()
	h.loc = loc
	h.mu.Unlock()

	h.listeners.Emit(loc, history.ActionPop)
}

func (h *liveHistory) Listen(fn history.Listener) func() {
	return h.listeners.Add(fn)
}

// liveSession drives one page from one connection. Everything runs on the
// connection's handler goroutine.
type liveSession struct {
	s    *Server
	id   string
	conn *websocket.Conn
	hist *liveHistory
	page *paramset.Page

	sent    map[string]any
	writeOK bool
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	id, fresh := s.session(r)
	header := http.Header{}
	if fresh {
		header.Add("Set-Cookie", s.sessionCookie(id).String())
	}

	conn, err := s.upgrader.Upgrade(w, r, header)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	s.metrics.sessionOpened()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		s.metrics.sessionClosed()
		_ = conn.Close()
		reactive.ReleaseGoroutine()
	}()

	location := r.URL.Query().Get("location")
	if location == "" {
		location = "/"
	}

	ls := &liveSession{s: s, id: id, conn: conn, writeOK: true}
	ls.hist = &liveHistory{loc: history.ParseLocation(location), send: ls.write}
	ls.page = s.params.Mount(s.sessionStore(id), ls.hist, s.sink)
	defer ls.page.Close()

	s.logger.Info("live session started", "session", id, "location", location)
	ls.run()
	s.logger.Info("live session ended", "session", id)
}

func (ls *liveSession) run() {
	ls.page.Render()
	ls.sent = ls.page.Values()
	ls.write(Frame{
		Type:     FrameHello,
		Session:  ls.id,
		Location: ls.hist.Location().String(),
		Values:   ls.sent,
	})

	for ls.writeOK {
		_ = ls.conn.SetReadDeadline(time.Now().Add(liveReadTimeout))
		_, msg, err := ls.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				ls.s.logger.Error("read error", "session", ls.id, "error", err)
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			ls.fail(errors.New("E503").Wrap(err))
			continue
		}
		ls.s.metrics.frame("in", f.Type)
		ls.handle(f)
	}
}

func (ls *liveSession) handle(f Frame) {
	switch f.Type {
	case FramePing:
		ls.write(Frame{Type: FramePong})
		return

	case FramePopState:
		ls.hist.pop(f.Location)
		ls.page.Flush()

	case FrameSet:
		value, err := ls.s.params.Decode(f.Name, f.Value)
		if err != nil {
			code := "E502"
			if _, ok := ls.s.params.Def(f.Name); !ok {
				code = "E501"
			}
			ls.fail(errors.New(code).Wrap(err))
			return
		}
		if err := ls.page.Set(f.Name, value); err != nil {
			ls.fail(errors.New("E502").Wrap(err))
			return
		}

	default:
		ls.fail(errors.New("E503").WithDetail("unknown frame type " + f.Type))
		return
	}

	values := ls.page.Values()
	if !reflect.DeepEqual(values, ls.sent) {
		ls.sent = values
		ls.write(Frame{Type: FrameState, Values: values})
	}
}

func (ls *liveSession) fail(e *errors.Error) {
	ls.s.logger.Warn("live frame rejected", "session", ls.id, "code", e.Code, "error", e)
	ls.write(Frame{Type: FrameError, Code: e.Code, Error: e.Error()})
}

func (ls *liveSession) write(f Frame) {
	if !ls.writeOK {
		return
	}
	_ = ls.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	if err := ls.conn.WriteJSON(f); err != nil {
		ls.s.logger.Error("write error", "session", ls.id, "error", err)
		ls.writeOK = false
		return
	}
	ls.s.metrics.frame("out", f.Type)
}
