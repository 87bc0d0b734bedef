package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial.v1"

	"github.com/solar3s/tivalink/tiva"
)

type pipePort struct {
	*io.PipeReader
	board *io.PipeWriter

	mu  sync.Mutex
	out bytes.Buffer
}

func newPipePort() *pipePort {
	r, w := io.Pipe()
	return &pipePort{PipeReader: r, board: w}
}

func (p *pipePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Write(b)
}

func (p *pipePort) sent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.String()
}

type testEnv struct {
	srv  *httptest.Server
	box  *tiva.Box
	hub  *Hub
	port *pipePort
	disp *tiva.Dispatcher
}

func newTestEnv(t *testing.T, openErr error) *testEnv {
	env := &testEnv{port: newPipePort()}
	env.disp = tiva.NewDispatcher(16)
	env.box = tiva.NewBox(env.disp)
	env.box.Conn.Opener = func(name string, mode *serial.Mode) (tiva.Port, error) {
		if openErr != nil {
			return nil, openErr
		}
		return env.port, nil
	}
	env.hub = NewHub(env.box, time.Second)
	env.disp.Add(env.hub)
	env.disp.Start()

	cfg := DefaultConfig
	cfg.Device = "COM3"
	env.srv = httptest.NewServer(NewServer("test", env.box, env.hub, &cfg).Handler())
	t.Cleanup(env.close)
	return env
}

func (env *testEnv) close() {
	env.srv.Close()
	env.box.Disconnect()
	env.disp.Stop()
}

func (env *testEnv) post(t *testing.T, path string, body string) (int, string) {
	resp, err := http.Post(env.srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func (env *testEnv) status(t *testing.T) Status {
	resp, err := http.Get(env.srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	return st
}

func TestServer_NotConnected(t *testing.T) {
	env := newTestEnv(t, nil)
	code, _ := env.post(t, "/message", `{"Text":"abc"}`)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = env.post(t, "/time", `{"Time":"12:00:00"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, tiva.Closed, env.status(t).State)
}

func TestServer_ConnectFailure(t *testing.T) {
	env := newTestEnv(t, errors.New("busy"))
	code, body := env.post(t, "/connect", `{"Port":"COM9"}`)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "COM9")
	assert.Equal(t, tiva.Closed, env.box.State())

	require.Eventually(t, func() bool {
		_, lastErr := env.hub.Last()
		return strings.Contains(lastErr, "COM9")
	}, time.Second*2, time.Millisecond*10)
}

func TestServer_Commands(t *testing.T) {
	env := newTestEnv(t, nil)
	code, _ := env.post(t, "/connect", "")
	require.Equal(t, http.StatusOK, code)
	st := env.status(t)
	assert.Equal(t, tiva.Open, st.State)
	assert.Equal(t, "COM3", st.Port)

	code, _ = env.post(t, "/time", `{"Time":"12:30:00"}`)
	assert.Equal(t, http.StatusOK, code)
	code, _ = env.post(t, "/message", `{"Text":"Hello"}`)
	assert.Equal(t, http.StatusOK, code)
	code, _ = env.post(t, "/time", `{"Time":"12:30"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	code, _ = env.post(t, "/message", `{not json`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "S12:30:00MHel", env.port.sent())

	code, _ = env.post(t, "/disconnect", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, tiva.Closed, env.status(t).State)
}

func TestServer_Websocket(t *testing.T) {
	env := newTestEnv(t, nil)
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/websocket"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	var e Event
	require.NoError(t, ws.ReadJSON(&e))
	assert.Equal(t, EventState, e.Type)
	assert.Equal(t, tiva.Closed, e.State)

	code, _ := env.post(t, "/connect", `{"Port":"COM3"}`)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, ws.ReadJSON(&e))
	assert.Equal(t, EventState, e.Type)
	assert.Equal(t, tiva.Open, e.State)

	go env.port.board.Write([]byte("bad\r\n12:00:00;512;0\r\n"))
	ws.SetReadDeadline(time.Now().Add(time.Second * 2))
	e = Event{}
	require.NoError(t, ws.ReadJSON(&e))
	assert.Equal(t, EventTelemetry, e.Type)
	require.NotNil(t, e.Telemetry)
	assert.Equal(t, "12:00:00", e.Telemetry.Time)
	assert.Equal(t, "512", e.Telemetry.Reading)
	assert.Equal(t, tiva.Pressed, e.Telemetry.Button)
	assert.Equal(t, "COM3", e.Port)

	last, _ := env.hub.Last()
	require.NotNil(t, last)
	assert.Equal(t, "512", last.Reading)
}

func TestServer_Home(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, err := http.Get(env.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), `value="COM3"`)
}

func TestErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadGateway, errorStatus(tiva.ErrWriteFailure))
	assert.Equal(t, http.StatusInternalServerError, errorStatus(errors.New("x")))
}
