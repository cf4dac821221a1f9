// Package httpd serves the display surface to a browser: frames go out as
// JPEG over a websocket, navigation and key events come back as JSON.
package httpd

import (
	"bytes"
	"image/jpeg"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kinoview/kinoview/internal/media"
	"github.com/kinoview/kinoview/internal/util"
	"github.com/pkg/errors"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Local tool, the listener binds loopback by default
	},
}

// outMsg is one prepared websocket message.
type outMsg struct {
	mt   int
	data []byte
}

// client is one connected browser. send is never closed: the writer
// goroutine exits via done, so a late offer can only drop a message, never
// hit a closed channel.
type client struct {
	id   string
	conn *websocket.Conn
	send chan outMsg
	done chan struct{}
}

// Server implements display.Renderer over HTTP/WebSocket. Loop-side calls
// follow the Renderer contract; websocket reads run on their own
// goroutines and only touch state behind the mutex.
type Server struct {
	logger *slog.Logger
	onKey  func(key rune)

	mu       sync.Mutex
	streams  []media.StreamInfo
	total    int
	visible  []bool
	last     []media.Image
	position int
	pending  *int
	dirty    bool
	closed   bool
	clients  map[string]*client

	ln      net.Listener
	httpSrv *http.Server
}

// New binds the listen address immediately so URL is known before the
// viewer loop starts the renderer. onKey receives key events from the
// page; it may be nil.
func New(addr string, onKey func(key rune)) (*Server, error) {
	s := &Server{
		logger:  util.GetLogger(),
		onKey:   onKey,
		clients: make(map[string]*client),
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", addr)
	}
	s.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.httpSrv = &http.Server{Handler: mux}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Display server error", "error", err)
		}
	}()

	s.logger.Info("Display surface listening", "url", s.URL())
	return s, nil
}

// URL returns the address of the display page.
func (s *Server) URL() string {
	return "http://" + s.ln.Addr().String() + "/"
}

// Start implements display.Renderer
func (s *Server) Start(streams []media.StreamInfo, total int) error {
	s.mu.Lock()
	s.streams = streams
	s.total = total
	s.visible = make([]bool, len(streams))
	s.last = make([]media.Image, len(streams))
	for i := range s.visible {
		s.visible[i] = true
	}
	conns := s.snapshotClients()
	init := s.initMessageLocked()
	s.mu.Unlock()

	// Clients that connected before the source was bound get the layout now.
	for _, c := range conns {
		s.offer(c, outMsg{mt: websocket.TextMessage, data: init})
	}
	return nil
}

// BeginFrame implements display.Renderer
func (s *Server) BeginFrame() {}

// PositionChanged implements display.Renderer
func (s *Server) PositionChanged() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return 0, false
	}
	pos := *s.pending
	s.pending = nil
	return pos, true
}

// SetPosition implements display.Renderer
func (s *Server) SetPosition(frame int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = frame
}

// Publish implements display.Renderer. The image is copied: the loop owns
// the grab buffer and overwrites it next iteration.
func (s *Server) Publish(stream int, img media.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stream < 0 || stream >= len(s.last) {
		return
	}
	s.last[stream] = img.Clone()
	s.dirty = true
}

// ToggleStream implements display.Renderer
func (s *Server) ToggleStream(stream int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stream < 0 || stream >= len(s.visible) {
		return
	}
	s.visible[stream] = !s.visible[stream]
	s.dirty = true
}

// Snapshot implements display.Renderer
func (s *Server) Snapshot(stream int) (media.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stream < 0 || stream >= len(s.last) || s.last[stream].Empty() {
		return media.Image{}, false
	}
	return s.last[stream].Clone(), true
}

// FinishFrame implements display.Renderer. Runs outside the viewer's
// control lock; this is where encoding and fan-out happen.
func (s *Server) FinishFrame() {
	s.mu.Lock()
	if !s.dirty || len(s.clients) == 0 {
		s.mu.Unlock()
		return
	}
	s.dirty = false
	images := make([]media.Image, len(s.last))
	copy(images, s.last)
	visible := append([]bool(nil), s.visible...)
	position := s.position
	conns := s.snapshotClients()
	s.mu.Unlock()

	msgs := make([]outMsg, 0, len(images)+1)
	for i, img := range images {
		if !visible[i] || img.Empty() {
			continue
		}
		var buf bytes.Buffer
		buf.WriteByte(byte(i))
		if err := jpeg.Encode(&buf, img.ToNRGBA(), &jpeg.Options{Quality: 80}); err != nil {
			s.logger.Warn("Frame encode failed", "stream", i, "error", err)
			continue
		}
		msgs = append(msgs, outMsg{mt: websocket.BinaryMessage, data: buf.Bytes()})
	}
	msgs = append(msgs, outMsg{
		mt:   websocket.TextMessage,
		data: []byte(`{"type":"position","frame":` + strconv.Itoa(position) + `}`),
	})

	for _, c := range conns {
		for _, m := range msgs {
			s.offer(c, m)
		}
	}
}

// Close implements display.Renderer
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	conns := s.snapshotClients()
	s.clients = make(map[string]*client)
	s.mu.Unlock()

	for _, c := range conns {
		close(c.done)
	}
	return s.httpSrv.Close()
}

// offer queues a message, dropping it when the client cannot keep up. A
// slow browser must never block the render loop.
func (s *Server) offer(c *client, m outMsg) {
	select {
	case c.send <- m:
	default:
		s.logger.Debug("Client channel full, dropping message", "client", c.id)
	}
}

func (s *Server) snapshotClients() []*client {
	conns := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		conns = append(conns, c)
	}
	return conns
}

func (s *Server) initMessageLocked() []byte {
	buf := bytes.NewBufferString(`{"type":"init","total":`)
	if s.total == media.UnknownFrameCount {
		buf.WriteString("-1")
	} else {
		buf.WriteString(strconv.Itoa(s.total))
	}
	buf.WriteString(`,"streams":[`)
	for i, st := range s.streams {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`{"index":` + strconv.Itoa(i) +
			`,"width":` + strconv.Itoa(st.Width) +
			`,"height":` + strconv.Itoa(st.Height) + `}`)
	}
	buf.WriteString(`]}`)
	return buf.Bytes()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade WebSocket", "error", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan outMsg, 32),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.clients[c.id] = c
	var init []byte
	if s.streams != nil {
		init = s.initMessageLocked()
	}
	s.mu.Unlock()

	s.logger.Info("Display client connected", "client", c.id)

	go func() {
		defer conn.Close()
		for {
			select {
			case m := <-c.send:
				if err := conn.WriteMessage(m.mt, m.data); err != nil {
					return
				}
			case <-c.done:
				return
			}
		}
	}()

	if init != nil {
		s.offer(c, outMsg{mt: websocket.TextMessage, data: init})
	}

	defer func() {
		s.mu.Lock()
		if _, ok := s.clients[c.id]; ok {
			delete(s.clients, c.id)
			close(c.done)
		}
		s.mu.Unlock()
		s.logger.Info("Display client disconnected", "client", c.id)
	}()

	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Debug("WebSocket read error", "client", c.id, "error", err)
			}
			return
		}

		msgType, ok := msg["type"].(string)
		if !ok {
			continue
		}

		switch msgType {
		case "seek":
			frame, ok := msg["frame"].(float64)
			if !ok {
				continue
			}
			pos := int(frame)
			s.mu.Lock()
			s.pending = &pos
			s.mu.Unlock()
		case "key":
			key, ok := msg["key"].(string)
			if !ok || key == "" || s.onKey == nil {
				continue
			}
			s.onKey([]rune(key)[0])
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexPage))
}
