// This file is part of go-mc/server project.
// Copyright (C) 2023.  Tnze
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Йоу, чат! Це моніторинг просторового індексу.
// Підключаємось websocket'ом на /spatial і кожен тік отримуємо
// msgpack кадр: скільки гравців, як довго будувались дерева, яка в них глибина.
// Тік ніколи не чекає на моніторинг: хто не встигає читати - того відключаємо.

package monitor

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"FlowyRealm/world"
)

const (
	// Path - де живе websocket
	Path = "/spatial"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64 // кадрів, ~3 секунди тіків
)

// Tree - форма одного дерева в кадрі
type Tree struct {
	Nodes    int `msgpack:"nodes"`
	Leaves   int `msgpack:"leaves"`
	Depth    int `msgpack:"depth"`
	Elements int `msgpack:"elements"`
}

// Frame - один кадр моніторингу, рівно один на тік
type Frame struct {
	Tick    uint  `msgpack:"tick"`
	Players int   `msgpack:"players"`
	BuildUs int64 `msgpack:"build_us"`
	TickUs  int64 `msgpack:"tick_us"`
	Views   Tree  `msgpack:"views"`
	Bodies  Tree  `msgpack:"bodies"`
	Queries int   `msgpack:"queries"`
	Moves   int   `msgpack:"moves"`
	Swings  int   `msgpack:"swings"`
	Hits    int   `msgpack:"hits"`
}

func newTree(s world.TreeStats) Tree {
	return Tree{Nodes: s.Nodes, Leaves: s.Leaves, Depth: s.Depth, Elements: s.Elements}
}

// NewFrame перетворює статистику тіку в кадр
func NewFrame(s world.TickStats) Frame {
	return Frame{
		Tick:    s.Tick,
		Players: s.Players,
		BuildUs: s.Build.Microseconds(),
		TickUs:  s.Duration.Microseconds(),
		Views:   newTree(s.Views),
		Bodies:  newTree(s.Bodies),
		Queries: s.Queries,
		Moves:   s.Moves,
		Swings:  s.Swings,
		Hits:    s.Hits,
	}
}

// Hub роздає кадри всім підключеним клієнтам. Реалізує world.TickObserver.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Моніторинг дивляться з будь-якої сторінки
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*subscriber]struct{}),
	}
}

// Handler повертає http.Handler з websocket'ом на Path
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(Path, h)
	return mux
}

// Clients повертає скільки клієнтів зараз підключено
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("Upgrade error", zap.Error(err))
		return
	}
	s := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(s)
	h.log.Info("Monitor connected", zap.String("addr", r.RemoteAddr))

	go h.writePump(s)
	go h.readPump(s)
}

// ObserveTick кодує кадр один раз і кладе його в черги клієнтів без очікування
func (h *Hub) ObserveTick(stats world.TickStats) {
	frame := NewFrame(stats)
	data, err := msgpack.Marshal(&frame)
	if err != nil {
		h.log.Error("Encode frame error", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.clients {
		select {
		case s.send <- data:
		default:
			h.log.Warn("Monitor client is too slow, dropping")
			h.dropLocked(s)
		}
	}
}

// Close відключає всіх клієнтів
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.clients {
		h.dropLocked(s)
	}
}

func (h *Hub) register(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[s] = struct{}{}
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(s)
}

// dropLocked прибирає клієнта. Закритий канал каже writePump закрити з'єднання.
func (h *Hub) dropLocked(s *subscriber) {
	if _, ok := h.clients[s]; ok {
		delete(h.clients, s)
		close(s.send)
	}
}

// readPump нічого не чекає від клієнта, тільки pong'и та закриття
func (h *Hub) readPump(s *subscriber) {
	defer func() {
		h.unregister(s)
		s.conn.Close()
	}()
	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("Monitor read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case data, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
