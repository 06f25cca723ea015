// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/duel/internal/game"
	"github.com/jason-s-yu/duel/internal/match"
	"github.com/jason-s-yu/duel/internal/middleware"
	"github.com/sirupsen/logrus"
)

const (
	joinTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second
	sendBuffer   = 32
	readLimit    = 4096
)

// joinMessage must be the first frame on the match channel.
type joinMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Identity  string `json:"identity"`
	Nickname  string `json:"nickname"`
	// Token is accepted here for clients that cannot set cookies on the upgrade request.
	Token string `json:"token"`
}

var inputTypes = map[string]bool{
	game.InputPlayChoice: true,
	game.InputMovePaddle: true,
	game.InputStopPaddle: true,
	game.InputMove:       true,
	game.InputKeyDown:    true,
	game.InputKeyUp:      true,
}

var pongMessage = []byte(`{"type":"pong"}`)

// wsClient is the session-facing side of one connection. Every outbound frame
// goes through send and is written by writePump alone.
type wsClient struct {
	conn   *websocket.Conn
	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
	}
}

// Send queues msg without blocking; a full buffer drops it.
func (c *wsClient) Send(msg []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// SendFinal queues msg, evicting the oldest queued frames until it fits.
func (c *wsClient) SendFinal(msg []byte) bool {
	for {
		select {
		case <-c.closed:
			return false
		default:
		}
		select {
		case c.send <- msg:
			return true
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.closed) })
}

func (c *wsClient) writePump(ctx context.Context, logger logrus.FieldLogger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case msg := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				logger.WithError(err).Debug("websocket write failed")
				c.close()
				return
			}
		}
	}
}

// GameWSHandler upgrades to the per-match channel. The first message must be a
// join naming the session and identity; after that every message is an input
// for the engine. Closing the socket while the match is running forfeits it.
func (s *Server) GameWSHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"game"},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warnf("WebSocket accept error: %v", err)
		return
	}
	defer c.CloseNow()

	if c.Subprotocol() != "game" {
		c.Close(BadSubprotocolError, "client must speak the game subprotocol")
		return
	}
	c.SetReadLimit(readLimit)
	middleware.LogWebSocketConnect(s.logger, r.RemoteAddr, r.URL.Path)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess, identity, join, err := s.handshake(ctx, c, r)
	if err != nil {
		middleware.LogWebSocketDisconnect(s.logger, r.RemoteAddr, r.URL.Path, err)
		return
	}
	log := s.logger.WithFields(logrus.Fields{"session": sess.ID, "identity": identity})

	client := newWSClient(c)
	if err := sess.Attach(identity, cleanNickname(join.Nickname), client); err != nil {
		log.WithError(err).Info("attach rejected")
		sendWsError(ctx, c, err.Error(), log)
		c.Close(attachCloseCode(err), err.Error())
		return
	}
	go client.writePump(ctx, log)

	go func() {
		select {
		case <-sess.Done():
			c.Close(websocket.StatusNormalClosure, "match over")
		case <-ctx.Done():
		}
	}()

	err = readGameMessages(ctx, c, sess, identity, client, log)

	sess.Detach(identity, client)
	client.close()
	middleware.LogWebSocketDisconnect(log, r.RemoteAddr, r.URL.Path, err)
}

// handshake reads the join frame and resolves the session and identity. On
// failure the connection has already been closed with a specific code.
func (s *Server) handshake(ctx context.Context, c *websocket.Conn, r *http.Request) (*match.Session, string, joinMessage, error) {
	var join joinMessage

	joinCtx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()
	typ, data, err := c.Read(joinCtx)
	if err != nil {
		return nil, "", join, fmt.Errorf("read join: %w", err)
	}
	if typ != websocket.MessageText || json.Unmarshal(data, &join) != nil || join.Type != "join" {
		c.Close(InvalidJoinError, "first message must be a join")
		return nil, "", join, errors.New("invalid join message")
	}

	token := tokenFromRequest(r)
	if token == "" {
		token = join.Token
	}
	identity, err := s.resolveToken(token, join.Identity)
	if err != nil {
		c.Close(InvalidAuthTokenError, "authentication failed")
		return nil, "", join, err
	}
	if identity == "" {
		c.Close(InvalidJoinError, "identity is required")
		return nil, "", join, errors.New("join without identity")
	}

	id, err := uuid.Parse(join.SessionID)
	if err != nil {
		c.Close(SessionNotFoundError, "invalid sessionId")
		return nil, "", join, fmt.Errorf("invalid session id: %w", err)
	}
	sess, ok := s.Sessions.Get(id)
	if !ok {
		c.Close(SessionNotFoundError, "session does not exist")
		return nil, "", join, match.ErrSessionNotFound
	}
	return sess, identity, join, nil
}

func attachCloseCode(err error) websocket.StatusCode {
	switch {
	case errors.Is(err, match.ErrNotSeated):
		return NotSeatedError
	case errors.Is(err, match.ErrAlreadyConnected):
		return AlreadyConnectedError
	case errors.Is(err, match.ErrSessionOver):
		return SessionOverError
	}
	return SessionNotFoundError
}

// readGameMessages routes client frames into the session until the connection
// closes. It returns nil on a normal closure.
func readGameMessages(ctx context.Context, c *websocket.Conn, sess *match.Session, identity string, client *wsClient, log logrus.FieldLogger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			log.Warnf("Received non-text message type %d. Ignoring.", msgType)
			continue
		}

		var in game.Input
		if err := json.Unmarshal(data, &in); err != nil {
			log.Debugf("invalid JSON: %v", err)
			sendClientError(client, "Invalid JSON format.")
			continue
		}

		switch {
		case in.Type == "ping":
			client.Send(pongMessage)
		case in.Type == "join":
			sendClientError(client, "already joined")
		case inputTypes[in.Type]:
			sess.Input(identity, in)
		default:
			sendClientError(client, fmt.Sprintf("Unknown message type: %s", in.Type))
		}
	}
}

func errorFrame(msg string) []byte {
	data, _ := json.Marshal(map[string]string{"type": "error", "message": msg})
	return data
}

func sendClientError(client *wsClient, msg string) {
	client.Send(errorFrame(msg))
}

// sendWsError writes an error frame directly; only used before the write pump owns the connection.
func sendWsError(ctx context.Context, c *websocket.Conn, msg string, log logrus.FieldLogger) {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := c.Write(writeCtx, websocket.MessageText, errorFrame(msg)); err != nil {
		log.WithError(err).Debug("failed to write error frame")
	}
}
