package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/BroadbandForum/obbaa-netconf-stack-sub017/internal/runtime"
	notifysvc "github.com/BroadbandForum/obbaa-netconf-stack-sub017/internal/services/notify"
	logpkg "github.com/BroadbandForum/obbaa-netconf-stack-sub017/pkg/log"
)

type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	lis    net.Listener
	logger logpkg.Logger
}

func New(rt *runtime.Runtime, logger logpkg.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{rt: rt, logger: logger.With(logpkg.Component("http")), srv: &http.Server{Handler: cors(mux)}}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/streams", s.handleStreams)
	mux.HandleFunc("/v1/notifications", s.handleDispatch)
	mux.HandleFunc("/v1/subscriptions/subscribe", s.handleSubscribeSSE)
	mux.HandleFunc("/v1/subscriptions/close", s.handleCloseSubscription)
	return s
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http.listen", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_serving"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStreams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name := r.URL.Query().Get("stream")
	if name != "" {
		info, ok := s.rt.Notify().StreamInfo(name)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"streams": s.rt.Notify().Streams()})
}

type dispatchReq struct {
	Stream  string `json:"stream"`
	Event   string `json:"event"`
	Payload []byte `json:"payload"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req dispatchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if req.Event == "" {
		writeError(w, http.StatusBadRequest, &notifysvc.Error{
			Tag:     notifysvc.TagBadElement,
			AppTag:  "missing-event-name",
			Field:   "event",
			Message: "event name is required",
		})
		return
	}
	ev := s.rt.Notify().Dispatch(req.Stream, req.Event, req.Payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": ev.ID.String(), "eventTime": ev.TimeMs})
}

type closeReq struct {
	Client string `json:"client"`
}

func (s *Server) handleCloseSubscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req closeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Client == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if !s.rt.Notify().CloseSubscription(req.Client) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubscribeSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	req := notifysvc.SubscribeRequest{
		Stream: q.Get("stream"),
		Filter: q.Get("filter"),
	}
	var err error
	if req.StartMs, err = parseTimeParam(q.Get("startTime")); err != nil {
		writeError(w, http.StatusBadRequest, &notifysvc.Error{
			Tag:     notifysvc.TagBadElement,
			AppTag:  "bad-time-format",
			Field:   "startTime",
			Message: err.Error(),
		})
		return
	}
	if req.StopMs, err = parseTimeParam(q.Get("stopTime")); err != nil {
		writeError(w, http.StatusBadRequest, &notifysvc.Error{
			Tag:     notifysvc.TagBadElement,
			AppTag:  "bad-time-format",
			Field:   "stopTime",
			Message: err.Error(),
		})
		return
	}
	client := q.Get("client")
	if client == "" {
		client = uuid.NewString()
	}

	// Headers must be staged before admission: a replay worker may write to
	// the channel as soon as the subscription registers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Subscription-Client", client)

	ch := newSSEChannel(w, r)
	sub, err := s.rt.Notify().CreateSubscription(client, req, ch)
	if err != nil {
		var nerr *notifysvc.Error
		if errors.As(err, &nerr) {
			writeError(w, statusForError(nerr), nerr)
		} else {
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}
	// Only now hand the socket to the writer pump; on a rejected request
	// no goroutine was spawned and the headers above were never committed.
	ch.start()

	s.logger.Info("http.subscribe",
		logpkg.Str("client", client),
		logpkg.Str("stream", sub.StreamName()),
	)
	// Hold the connection open until the pump ends the stream: terminal
	// marker written, server-side close, or the client disconnecting.
	<-ch.done
}

// parseTimeParam accepts RFC 3339 or unix milliseconds; empty means absent.
func parseTimeParam(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	if ts, err := time.Parse(time.RFC3339, v); err == nil {
		return ts.UnixMilli(), nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
		return ms, nil
	}
	return 0, errors.New("expected RFC 3339 timestamp or unix milliseconds")
}

func statusForError(nerr *notifysvc.Error) int {
	switch nerr.AppTag {
	case notifysvc.AppTagAlreadySubscribed:
		return http.StatusConflict
	case notifysvc.AppTagStreamNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func writeError(w http.ResponseWriter, status int, nerr *notifysvc.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error-tag":     string(nerr.Tag),
		"error-app-tag": nerr.AppTag,
		"error-field":   nerr.Field,
		"error-message": nerr.Message,
	})
}
