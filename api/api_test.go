package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"adbdeck/adb"
	"adbdeck/config"
	"adbdeck/models"
	"adbdeck/parser"
	"adbdeck/registry"
	"adbdeck/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const dev = "R9TR90HQ6GL"

type fakeExec struct {
	mu      sync.Mutex
	outputs map[string]string
	fail    map[string]error
}

func (f *fakeExec) Run(_ context.Context, c adb.Command, stdout, _ io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	io.WriteString(stdout, f.outputs[c.String()])
	return f.fail[c.String()]
}

func (f *fakeExec) Start(adb.Command) (func() error, error) {
	return func() error { return nil }, nil
}

type testServer struct {
	router *gin.Engine
	exec   *fakeExec
	client *adb.ADBClient
	deps   Deps
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	f := &fakeExec{outputs: map[string]string{}, fail: map[string]error{}}
	runner := adb.NewRunnerWith(f, zerolog.Nop(), 0, "linux")
	client := adb.NewADBClient(runner, "", zerolog.Nop())
	client.ADBPath, client.ScrcpyPath = "adb", "scrcpy"
	f.outputs["adb devices"] = "List of devices attached\n" + dev + "\tdevice\nWJD06AR03662\tdevice\n"

	db, err := config.InitDatabase(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("InitDatabase: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	reg := registry.New(nil)
	hub := NewWebSocketHub(zerolog.Nop())
	dm := service.NewDeviceManager(client, reg, zerolog.Nop())
	dm.SetBroadcaster(hub)
	go hub.Run(ctx)
	go dm.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-dm.Stopped()
	})

	history := service.NewHistoryStore(db)
	dispatcher := service.NewActionDispatcher(client, reg, service.OptionsFromConfig(config.Default()), zerolog.Nop())
	deps := Deps{
		Devices:  dm,
		Jobs:     service.NewJobs(dispatcher, dm, history, parser.English, zerolog.Nop()),
		Client:   client,
		Enricher: service.NewEnricher(client, service.NewLabelCache(db), 2, zerolog.Nop()),
		History:  history,
		Hub:      hub,
		Context:  ctx,
		Log:      zerolog.Nop(),
	}
	t.Cleanup(deps.Jobs.Wait)
	router := gin.New()
	SetupRoutes(router, deps)
	return &testServer{router: router, exec: f, client: client, deps: deps}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil && w.Body.Len() > 0 {
		t.Fatalf("%s %s: bad JSON %q", method, path, w.Body.String())
	}
	return w, resp
}

// decode re-marshals resp.Data into v.
func decode(t *testing.T, resp models.APIResponse, v any) {
	t.Helper()
	b, _ := json.Marshal(resp.Data)
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, resp := s.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("status = %d, resp = %+v", w.Code, resp)
	}
}

func TestListActions(t *testing.T) {
	s := newTestServer(t)
	_, resp := s.do(t, http.MethodGet, "/api/actions", nil)
	var actions []models.Action
	decode(t, resp, &actions)
	if len(actions) != len(service.Catalog()) {
		t.Fatalf("got %d actions", len(actions))
	}
	if actions[0].ID != service.ActionLauncherVersion || actions[len(actions)-1].ID != service.ActionScreenshot {
		t.Errorf("order = %d .. %d", actions[0].ID, actions[len(actions)-1].ID)
	}
}

func TestScanAndSelect(t *testing.T) {
	s := newTestServer(t)
	w, resp := s.do(t, http.MethodPost, "/api/devices/scan", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("scan status = %d", w.Code)
	}
	var state service.AppState
	decode(t, resp, &state)
	if len(state.Devices) != 2 || state.Selected != dev {
		t.Fatalf("state = %+v", state)
	}

	w, _ = s.do(t, http.MethodPut, "/api/devices/selected", gin.H{"device_id": "WJD06AR03662"})
	if w.Code != http.StatusOK {
		t.Fatalf("select status = %d", w.Code)
	}
	_, resp = s.do(t, http.MethodGet, "/api/devices", nil)
	decode(t, resp, &state)
	if state.Selected != "WJD06AR03662" {
		t.Errorf("selected = %q", state.Selected)
	}

	w, resp = s.do(t, http.MethodPut, "/api/devices/selected", gin.H{"device_id": "gone"})
	if w.Code != http.StatusBadRequest || resp.Success {
		t.Errorf("unknown device: status = %d, resp = %+v", w.Code, resp)
	}
}

func TestGetDevice(t *testing.T) {
	s := newTestServer(t)
	if w, _ := s.do(t, http.MethodPost, "/api/devices/scan", nil); w.Code != http.StatusOK {
		t.Fatalf("scan status = %d", w.Code)
	}

	w, resp := s.do(t, http.MethodGet, "/api/devices/"+dev, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var d models.Device
	decode(t, resp, &d)
	if d.ID != dev || d.Label == models.UnknownLabel {
		t.Errorf("device = %+v", d)
	}

	w, resp = s.do(t, http.MethodGet, "/api/devices/gone", nil)
	if w.Code != http.StatusNotFound || resp.Success {
		t.Errorf("unknown device: status = %d, resp = %+v", w.Code, resp)
	}
}

func TestRunActionWaitsForResult(t *testing.T) {
	s := newTestServer(t)
	battery, _ := s.client.BatteryCmd(dev)
	s.exec.outputs[battery.String()] = "  AC powered: true\n  level: 64\n"

	w, resp := s.do(t, http.MethodPost, "/api/actions/battery", gin.H{"device_id": dev})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var res models.JobResult
	decode(t, resp, &res)
	if res.Parsed != "Battery level: 64%\nCharging: yes" || res.Envelope == nil || res.Envelope.Title != "Battery Info" {
		t.Errorf("result = %+v", res)
	}

	_, resp = s.do(t, http.MethodGet, "/api/history?limit=5", nil)
	var recs []models.HistoryRecord
	decode(t, resp, &recs)
	if len(recs) != 1 || recs[0].ID != res.JobID {
		t.Errorf("history = %+v", recs)
	}
}

func TestRunActionErrors(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		path string
		body any
		want int
	}{
		{"/api/actions/nope", nil, http.StatusNotFound},
		{"/api/actions/6", nil, http.StatusBadRequest},
		{"/api/actions/13", gin.H{"device_id": dev}, http.StatusBadRequest},
		{"/api/actions/6", gin.H{"device_id": "R9; reboot"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		w, resp := s.do(t, http.MethodPost, tt.path, tt.body)
		if w.Code != tt.want || resp.Success || resp.Error == "" {
			t.Errorf("%s %v: status = %d, resp = %+v", tt.path, tt.body, w.Code, resp)
		}
	}
}

func TestRunActionAsync(t *testing.T) {
	s := newTestServer(t)
	w, resp := s.do(t, http.MethodPost, "/api/actions/home?async=true", gin.H{"device_id": dev})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		JobID string `json:"job_id"`
	}
	decode(t, resp, &body)
	if body.JobID == "" {
		t.Error("no job id")
	}
	s.deps.Jobs.Wait()
}

func TestPackagesAndDetails(t *testing.T) {
	s := newTestServer(t)
	list, _ := s.client.ListPackagesCmd(dev)
	s.exec.outputs[list.String()] = "package:com.example.zeta\npackage:com.android.Alpha\n"
	dump, _ := s.client.PMDumpCmd(dev, "com.example.zeta")
	s.exec.outputs[dump.String()] = "  versionName=2.0\n  versionCode=20 minSdk=21\n  firstInstallTime=2024-01-01 10:00:00\n"

	_, resp := s.do(t, http.MethodGet, "/api/devices/"+dev+"/packages?labels=false", nil)
	var pkgs []models.Package
	decode(t, resp, &pkgs)
	if len(pkgs) != 2 || pkgs[0].DisplayName != "Alpha" || pkgs[1].DisplayName != "zeta" {
		t.Errorf("packages = %+v", pkgs)
	}

	_, resp = s.do(t, http.MethodGet, "/api/devices/"+dev+"/packages/com.example.zeta", nil)
	var d models.AppDetails
	decode(t, resp, &d)
	if d.Name != "zeta" || d.VersionCode != "20" || d.InstallDate != "2024-01-01 10:00:00" || d.DataDir != models.NotFound {
		t.Errorf("details = %+v", d)
	}

	w, _ := s.do(t, http.MethodGet, "/api/devices/"+dev+"/packages/bad;pkg", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad package status = %d", w.Code)
	}
}

func TestFiles(t *testing.T) {
	s := newTestServer(t)
	ls, _ := s.client.ListDirCmd(dev, "/sdcard")
	s.exec.outputs[ls.String()] = "notes.txt\nDownload/\nDCIM/\nlink@\n"

	_, resp := s.do(t, http.MethodGet, "/api/devices/"+dev+"/files", nil)
	var entries []models.DirEntry
	decode(t, resp, &entries)
	if len(entries) != 4 || entries[0].Name != "DCIM" || entries[0].Type != models.EntryDir || entries[3].Name != "notes.txt" {
		t.Errorf("entries = %+v", entries)
	}

	w, _ := s.do(t, http.MethodPost, "/api/devices/"+dev+"/files/mkdir", gin.H{"path": "/sdcard/new"})
	if w.Code != http.StatusOK {
		t.Errorf("mkdir status = %d", w.Code)
	}

	bad, _ := s.client.PushCmd(dev, "/tmp/missing.bin", "/sdcard/Download")
	s.exec.fail[bad.String()] = errors.New("exit status 1")
	_, resp = s.do(t, http.MethodPost, "/api/devices/"+dev+"/files/push", gin.H{
		"files":  []string{"/tmp/a.bin", "/tmp/missing.bin"},
		"remote": "/sdcard/Download",
	})
	var results []models.PushResult
	decode(t, resp, &results)
	if len(results) != 2 || results[0].Error != "" || results[1].Error == "" {
		t.Errorf("results = %+v", results)
	}

	w, _ = s.do(t, http.MethodPost, "/api/devices/"+dev+"/files/push", gin.H{"remote": "/sdcard"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty push status = %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)
	for origin, allowed := range map[string]bool{
		"http://localhost:5173": true,
		"http://127.0.0.1:8080": true,
		"https://evil.example":  false,
	} {
		req := httptest.NewRequest(http.MethodOptions, "/api/actions", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		got := w.Header().Get("Access-Control-Allow-Origin")
		if (got == origin) != allowed {
			t.Errorf("%s: Access-Control-Allow-Origin = %q", origin, got)
		}
	}
}

func TestWebSocketReceivesDeviceList(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for s.deps.Hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := s.deps.Devices.ScanDevices(context.Background()); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg models.WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "devices" {
		t.Errorf("type = %q", msg.Type)
	}
}
