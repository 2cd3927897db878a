package live

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HerbHall/artiscatalog/internal/filter"
	"github.com/HerbHall/artiscatalog/internal/metrics"
	"github.com/HerbHall/artiscatalog/internal/plugin"
	"github.com/HerbHall/artiscatalog/internal/server"
	"github.com/HerbHall/artiscatalog/internal/services"
)

const (
	writeTimeout = 5 * time.Second
	outboxSize   = 32
	readLimit    = 4 << 10
)

// Handler upgrades browser connections to live sessions.
type Handler struct {
	engine  Querier
	prefs   services.PreferencesRepository
	logger  *zap.Logger
	metrics *metrics.Metrics

	window         time.Duration
	pageSize       int
	originPatterns []string

	// base is canceled when the module stops, ending every open session.
	base context.Context
	wg   sync.WaitGroup
}

// NewHandler returns a live handler. prefs may be nil, in which case sessions
// start from the default preferences and persist nothing.
func NewHandler(engine Querier, prefs services.PreferencesRepository, logger *zap.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		engine:  engine,
		prefs:   prefs,
		logger:  logger,
		metrics: m,
		window:  filter.DefaultDebounceWindow,
		base:    context.Background(),
	}
}

// Routes returns the live session route.
func (h *Handler) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/ws", Handler: h.handleWS},
	}
}

// handleWS serves one live session for the lifetime of the connection.
//
//	@Summary		Live browsing session
//	@Description	Websocket. Send {type, value} intents; receive {type, state, activeFilters, count, products} updates.
//	@Tags			live
//	@Param			q query string false "Initial search text"
//	@Param			catalog query string false "Initial catalog"
//	@Param			category query string false "Initial category"
//	@Success		101
//	@Router			/live/ws [get]
func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	clientID := server.ClientID(w, r)
	prefs := filter.DefaultPreferences()
	var sink filter.PreferenceSink
	if h.prefs != nil {
		var err error
		prefs, err = services.LoadPreferences(r.Context(), h.prefs, clientID)
		if err != nil {
			h.logger.Warn("failed to load preferences", zap.String("client_id", clientID), zap.Error(err))
		}
		sink = services.NewPreferenceSink(h.prefs, clientID, h.logger, h.metrics)
	}

	// The hijacked connection keeps the server's deadlines unless cleared.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	h.wg.Add(1)
	defer h.wg.Done()
	h.metrics.SessionOpened()
	defer h.metrics.SessionClosed()

	opts := []filter.Option{filter.WithPreferences(prefs)}
	if sink != nil {
		opts = append(opts, filter.WithSink(sink))
	}
	state := filter.NewState(opts...)
	state.ApplyURLParams(r.URL.Query())

	g, gctx := errgroup.WithContext(r.Context())
	outbox := make(chan Message, outboxSize)
	send := func(m Message) {
		select {
		case outbox <- m:
		case <-gctx.Done():
		}
	}
	sess := NewSession(h.engine, state, send,
		WithDebounce(h.window),
		WithPageSize(h.pageSize),
		WithSessionLogger(h.logger),
		WithSessionMetrics(h.metrics),
	)
	defer sess.Close()

	log := h.logger.With(zap.String("client_id", clientID))
	log.Debug("live session opened")

	sess.Start()
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case m := <-outbox:
				wctx, wcancel := context.WithTimeout(gctx, writeTimeout)
				err := wsjson.Write(wctx, conn, m)
				wcancel()
				if err != nil {
					return err
				}
			}
		}
	})
	g.Go(func() error {
		select {
		case <-h.base.Done():
			// Close performs the handshake; the reader then sees the close frame.
			return conn.Close(websocket.StatusGoingAway, "server shutting down")
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		for {
			var in Intent
			if err := wsjson.Read(gctx, conn, &in); err != nil {
				return err
			}
			if err := sess.Handle(in); err != nil {
				log.Debug("rejected intent", zap.String("intent", in.Type), zap.Error(err))
			}
		}
	})
	err = g.Wait()
	switch {
	case h.base.Err() != nil:
		// Already closed by the shutdown watcher.
	case isNormalClose(err):
		_ = conn.Close(websocket.StatusNormalClosure, "")
	default:
		log.Debug("live session ended", zap.Error(err))
		_ = conn.Close(websocket.StatusInternalError, "session error")
	}
	log.Debug("live session closed")
}

func isNormalClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}
