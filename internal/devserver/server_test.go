package devserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"closuregen/internal/jshost"
	"closuregen/internal/jsvalue"
	"closuregen/internal/modules"
	"closuregen/internal/wellknown"
)

func newTestServer(t *testing.T, files map[string]string) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	r := jsvalue.NewRealm()
	host, err := jshost.New(r)
	require.NoError(t, err)
	base, err := wellknown.NewBase(r)
	require.NoError(t, err)
	mgr, err := modules.New(host, base, modules.Config{})
	require.NoError(t, err)
	t.Cleanup(mgr.Close)

	ts := httptest.NewServer(New(mgr, dir).Handler())
	t.Cleanup(ts.Close)
	return ts, dir
}

func get(t *testing.T, url string) (int, string, http.Header) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body), resp.Header
}

func TestServesModule(t *testing.T) {
	ts, _ := newTestServer(t, map[string]string{"numbers.json": "[123, 456, 789]"})

	status, body, header := get(t, ts.URL+"/@modules/numbers.js")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "const defaultExport = [123, 456, 789];\nexport default defaultExport;\n", body)
	assert.Equal(t, "text/javascript; charset=utf-8", header.Get("Content-Type"))
}

func TestRegeneratesChangedDocument(t *testing.T) {
	ts, dir := newTestServer(t, map[string]string{"cfg.json": `{"a":1}`})

	_, body, _ := get(t, ts.URL+"/@modules/cfg.js")
	assert.Contains(t, body, "a: 1")

	path := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":2}`), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	_, body, _ = get(t, ts.URL+"/@modules/cfg.js")
	assert.Contains(t, body, "a: 2")
}

func TestModuleErrors(t *testing.T) {
	ts, _ := newTestServer(t, map[string]string{"broken.json": "{"})

	cases := []struct {
		path   string
		status int
	}{
		{"/@modules/missing.js", http.StatusNotFound},
		{"/@modules/broken.js", http.StatusUnprocessableEntity},
		{"/@modules/.hidden.js", http.StatusBadRequest},
		{"/@modules/numbers.json", http.StatusBadRequest},
	}
	for _, c := range cases {
		t.Run(c.path, func(t *testing.T) {
			status, _, _ := get(t, ts.URL+c.path)
			assert.Equal(t, c.status, status)
		})
	}
}

func TestListsModules(t *testing.T) {
	ts, _ := newTestServer(t, map[string]string{
		"b.json":     "1",
		"a.json":     "2",
		"notes.txt":  "x",
		".skip.json": "3",
	})

	status, body, _ := get(t, ts.URL+"/@modules/")
	require.Equal(t, http.StatusOK, status)
	var out struct {
		Modules []moduleInfo `json:"modules"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	require.Len(t, out.Modules, 2)
	assert.Equal(t, moduleInfo{Name: "a", ID: modules.DefaultPrefix + "a", URL: "/@modules/a.js"}, out.Modules[0])
	assert.Equal(t, "b", out.Modules[1].Name)
}

func TestEventsWebSocket(t *testing.T) {
	ts, _ := newTestServer(t, map[string]string{"data.json": `{"k":"v"}`})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/@modules/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg eventsWSOutbound
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "subscribed", msg.Type)

	status, _, _ := get(t, ts.URL+"/@modules/data.js")
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, string(modules.EventReady), msg.Type)
	assert.Equal(t, modules.DefaultPrefix+"data", msg.ID)
	assert.Positive(t, msg.Bytes)

	require.NoError(t, conn.WriteJSON(eventsWSInbound{Type: "ping"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg.Type)
}
