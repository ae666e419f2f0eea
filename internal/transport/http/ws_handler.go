package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/salon-chat/salon-server/internal/auth"
	"github.com/salon-chat/salon-server/internal/core"
	"github.com/salon-chat/salon-server/internal/proto"
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
// Register and login are served here against the credential service; every
// presence-touching event is forwarded to the hub.
type WSHandler struct {
	hub         *core.Hub
	authService *auth.Service
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authService *auth.Service, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, authService: authService, log: logger}
}

// wsSession is the per-connection state. replies carries transport-level
// responses (auth results, protocol errors) so the write loop stays the
// only goroutine touching the socket.
type wsSession struct {
	client  *core.Client
	replies chan proto.Outbound
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	sess := &wsSession{
		client:  core.NewClient(uuid.NewString()),
		replies: make(chan proto.Outbound, 8),
	}
	h.hub.RegisterClient(sess.client)
	defer h.hub.UnregisterClient(sess.client)

	h.log.Debug().Str("conn_id", sess.client.ConnID).Msg("ws connection open")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sess)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, sess)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", sess.client.ConnID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sess *wsSession) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		switch inbound.Type {
		case proto.InboundTypeRegister, proto.InboundTypeLogin:
			h.handleAuth(ctx, sess, inbound)
			continue
		}

		cmd, protoErr, err := inboundToCommand(inbound)
		if err != nil {
			h.log.Warn().Err(err).Str("conn_id", sess.client.ConnID).Msg("failed to map inbound")
			return err
		}
		if protoErr != nil {
			sess.replies <- proto.Outbound{Type: proto.OutboundTypeError, Data: *protoErr}
			continue
		}
		sess.client.Commands <- cmd
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sess *wsSession) error {
	for {
		select {
		case event, ok := <-sess.client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				return err
			}
		case reply := <-sess.replies:
			if err := wsjson.Write(ctx, conn, reply); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleAuth serves register and login without involving the hub: neither
// touches presence state.
func (h *WSHandler) handleAuth(ctx context.Context, sess *wsSession, inbound proto.Inbound) {
	var data proto.CredentialsData
	if err := json.Unmarshal(inbound.Data, &data); err != nil {
		sess.replies <- connexionError(core.ErrCodeWrongCredentials, "invalid payload")
		return
	}

	switch inbound.Type {
	case proto.InboundTypeRegister:
		_, token, err := h.authService.Register(ctx, data.Username, data.Password)
		if err != nil {
			sess.replies <- connexionError(registerErrCode(err), err.Error())
			return
		}
		h.log.Info().Str("username", data.Username).Msg("user registered")
		sess.replies <- proto.Outbound{Type: proto.OutboundTypeRegisterSuccess, Data: proto.AuthData{Token: token}}

	case proto.InboundTypeLogin:
		_, token, err := h.authService.Login(ctx, data.Username, data.Password)
		if err != nil {
			sess.replies <- connexionError(loginErrCode(err), err.Error())
			return
		}
		h.log.Info().Str("username", data.Username).Msg("user logged in")
		sess.replies <- proto.Outbound{Type: proto.OutboundTypeLoginSuccess, Data: proto.AuthData{Token: token}}
	}
}

func connexionError(code, msg string) proto.Outbound {
	return proto.Outbound{
		Type: proto.OutboundTypeConnexionError,
		Data: proto.ErrorData{Code: code, Message: msg},
	}
}

func registerErrCode(err error) string {
	switch {
	case errors.Is(err, auth.ErrUserExists):
		return core.ErrCodeDuplicateUsername
	case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidPassword):
		return core.ErrCodeInvalidName
	default:
		return core.ErrCodeStoreFailure
	}
}

func loginErrCode(err error) string {
	switch {
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrWrongPassword):
		return core.ErrCodeWrongCredentials
	default:
		return core.ErrCodeStoreFailure
	}
}
