package web

import (
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rkjdid/util"
	log "github.com/sirupsen/logrus"

	"github.com/solar3s/tivalink/tiva"
)

type ServerConfig struct {
	ListenAddr     string
	Verbose        bool
	WebsocketWrite util.Duration // websocket write timeout
}

var DefaultServerConfig = ServerConfig{
	ListenAddr:     "localhost:3636",
	WebsocketWrite: util.Duration(time.Second * 2),
}

type Server struct {
	Config *Config
	Box    *tiva.Box
	Hub    *Hub

	version    string
	router     *mux.Router
	wsUpgrader *websocket.Upgrader
	page       *template.Template
}

// Status is the /status response.
type Status struct {
	State     tiva.State
	Port      string
	Last      *tiva.Telemetry
	LastError string
	Version   string
}

type connectRequest struct {
	Port string
}

type timeRequest struct {
	Time string
}

type messageRequest struct {
	Text string
}

// NewServer sets up routes for box, hub must be one of box's sinks.
func NewServer(version string, box *tiva.Box, hub *Hub, cfg *Config) *Server {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	s := &Server{
		Config:  cfg,
		Box:     box,
		Hub:     hub,
		version: version,
		wsUpgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		page: template.Must(template.New("home").Parse(homeTemplate)),
	}

	verbose := cfg.Web.Verbose
	s.router = mux.NewRouter()

	// shh
	s.router.Handle("/favicon.ico", http.HandlerFunc(NilHandler))

	s.router.Handle("/websocket",
		Logger(http.HandlerFunc(s.Websocket), "ws-telemetry", verbose)).
		Methods("GET")
	s.router.Handle("/status",
		Logger(http.HandlerFunc(s.Status), "status", verbose)).
		Methods("GET", "HEAD")
	s.router.Handle("/ports",
		Logger(http.HandlerFunc(s.Ports), "ports", verbose)).
		Methods("GET", "HEAD")
	s.router.Handle("/connect",
		Logger(http.HandlerFunc(s.Connect), "connect", verbose)).
		Methods("POST")
	s.router.Handle("/disconnect",
		Logger(http.HandlerFunc(s.Disconnect), "disconnect", verbose)).
		Methods("POST")
	s.router.Handle("/time",
		Logger(http.HandlerFunc(s.SetTime), "time", verbose)).
		Methods("POST")
	s.router.Handle("/message",
		Logger(http.HandlerFunc(s.SetMessage), "message", verbose)).
		Methods("POST")
	s.router.Handle("/",
		Logger(http.HandlerFunc(s.Home), "web", verbose)).
		Methods("GET", "HEAD")
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until the http server fails.
func (s *Server) ListenAndServe() error {
	httpServer := &http.Server{
		Handler:      s.router,
		Addr:         s.Config.Web.ListenAddr,
		WriteTimeout: 4 * time.Second,
		ReadTimeout:  4 * time.Second,
	}
	return httpServer.ListenAndServe()
}

// Websocket subscribes the client to telemetry, error and state events.
func (s *Server) Websocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		log.Println("error subscribing to websocket:", err)
		return
	}
	log.Debugf("websocket - subscription from %s", conn.RemoteAddr())
	go s.Hub.Serve(conn)
}

func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	last, lastErr := s.Hub.Last()
	writeJSON(w, http.StatusOK, Status{
		State:     s.Box.State(),
		Port:      s.Box.Port(),
		Last:      last,
		LastError: lastErr,
		Version:   s.version,
	})
}

func (s *Server) Ports(w http.ResponseWriter, r *http.Request) {
	ports, err := tiva.ListPorts()
	if err != nil {
		log.Println("error listing ports:", err)
		http.Error(w, "error listing serial ports", http.StatusInternalServerError)
		return
	}
	if ports == nil {
		ports = []string{}
	}
	writeJSON(w, http.StatusOK, ports)
}

// Connect opens the port in the request body, or the configured Device.
func (s *Server) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Port == "" {
		req.Port = s.Config.Device
	}
	if err := s.Box.Connect(req.Port); err != nil {
		writeError(w, err)
		return
	}
	s.Hub.StateChanged()
	s.Status(w, r)
}

func (s *Server) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.Box.Disconnect(); err != nil {
		log.Println("error closing port:", err)
	}
	s.Hub.StateChanged()
	s.Status(w, r)
}

// SetTime sets the board clock, to the host's if Time is empty.
func (s *Server) SetTime(w http.ResponseWriter, r *http.Request) {
	var req timeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Box.SendTimeSet(req.Time); err != nil {
		writeError(w, err)
		return
	}
	w.Write([]byte("time sent"))
}

func (s *Server) SetMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Box.SendMessage(req.Text); err != nil {
		writeError(w, err)
		return
	}
	w.Write([]byte("message sent"))
}

func (s *Server) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := s.page.Execute(w, struct {
		Version string
		Device  string
	}{s.version, s.Config.Device})
	if err != nil {
		log.Println("error executing home template:", err)
	}
}

// decodeJSON tolerates an empty body, leaving v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && err != io.EOF {
		log.Println("error decoding json:", err)
		http.Error(w, "couldn't decode provided json", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), errorStatus(err))
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, tiva.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, tiva.ErrInvalidPayload):
		return http.StatusUnprocessableEntity
	case errors.Is(err, tiva.ErrPortUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, tiva.ErrWriteFailure):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
