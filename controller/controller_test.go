package controller

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webdesk/middleware"
	"webdesk/service/fs"
	"webdesk/service/sandbox"
	"webdesk/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router  *gin.Engine
	root    string
	public  string
	metrics *middleware.Metrics
	hub     *websocket.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	root := filepath.Join(t.TempDir(), "root")
	public := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(public, "index.html"), []byte("<html>desk</html>"), 0644))

	sb, err := sandbox.New(root)
	require.NoError(t, err)
	fsService := fs.NewLocalService(sb, zerolog.Nop())
	require.NoError(t, fsService.EnsureRoot())

	metrics := middleware.NewMetrics("test")
	fsService.SetTraversalObserver(metrics)
	hub := websocket.NewHub(time.Minute, metrics, zerolog.Nop())

	r := gin.New()
	r.Use(metrics.Prometheus())
	SetupRoutes(r, Deps{
		FS:         fsService,
		Hub:        hub,
		Metrics:    metrics,
		ViewMaxAge: time.Hour,
		PublicDir:  public,
	})

	return &testEnv{router: r, root: root, public: public, metrics: metrics, hub: hub}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(target string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (e *testEnv) postJSON(target string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *testEnv) upload(t *testing.T, dir, filename, content string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload?path="+dir, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Error
}

func TestListFiles(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(e.root, "docs", "old"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(e.root, "docs", "a.txt"), []byte("a"), 0644))

	t.Run("fresh root", func(t *testing.T) {
		w := e.get("/api/files")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"currentPath":"","files":[{"name":"docs","isDirectory":true,"size":0,"path":"docs"}]}`, w.Body.String())
	})

	t.Run("subdirectory", func(t *testing.T) {
		w := e.get("/api/files?path=docs")
		require.Equal(t, http.StatusOK, w.Code)

		var listing fs.Listing
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
		assert.Equal(t, "docs", listing.CurrentPath)
		assert.Len(t, listing.Files, 2)
	})

	t.Run("materializes missing directory", func(t *testing.T) {
		w := e.get("/api/files?path=new/deep")
		require.Equal(t, http.StatusOK, w.Code)
		assert.DirExists(t, filepath.Join(e.root, "new", "deep"))
	})

	t.Run("traversal", func(t *testing.T) {
		w := e.get("/api/files?path=../../etc")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, fs.TraversalMessage, errorOf(t, w))
	})
}

func TestDownloadAndView(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(e.root, "pics"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(e.root, "pics", "cat.txt"), []byte("meow"), 0644))

	t.Run("download", func(t *testing.T) {
		w := e.get("/api/download?path=pics/cat.txt")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "meow", w.Body.String())
		assert.Equal(t, `attachment; filename=cat.txt`, w.Header().Get("Content-Disposition"))
		assert.Empty(t, w.Header().Get("Cache-Control"))
	})

	t.Run("view", func(t *testing.T) {
		w := e.get("/api/view?path=pics/cat.txt")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "meow", w.Body.String())
		assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))
		assert.Equal(t, `inline; filename=cat.txt`, w.Header().Get("Content-Disposition"))
		assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	})

	t.Run("range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/download?path=pics/cat.txt", nil)
		req.Header.Set("Range", "bytes=1-2")
		w := e.do(req)
		assert.Equal(t, http.StatusPartialContent, w.Code)
		assert.Equal(t, "eo", w.Body.String())
	})

	t.Run("missing", func(t *testing.T) {
		w := e.get("/api/download?path=pics/dog.txt")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, errorOf(t, w), fs.ErrNotFound.Error())
	})

	t.Run("directory", func(t *testing.T) {
		w := e.get("/api/view?path=pics")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, w.Header().Get("Cache-Control"))
	})

	t.Run("traversal", func(t *testing.T) {
		w := e.get("/api/download?path=../../../etc/passwd")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, fs.TraversalMessage, errorOf(t, w))
	})
}

func TestCreateFolder(t *testing.T) {
	e := newTestEnv(t)

	t.Run("created", func(t *testing.T) {
		w := e.postJSON("/api/folder", gin.H{"path": "", "name": "X"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true}`, w.Body.String())
		assert.DirExists(t, filepath.Join(e.root, "X"))
	})

	t.Run("path from query", func(t *testing.T) {
		w := e.postJSON("/api/folder?path=X", gin.H{"name": "Y"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.DirExists(t, filepath.Join(e.root, "X", "Y"))
	})

	t.Run("missing name", func(t *testing.T) {
		w := e.postJSON("/api/folder", gin.H{"path": ""})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Folder name required", errorOf(t, w))

		w = e.do(httptest.NewRequest(http.MethodPost, "/api/folder", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Folder name required", errorOf(t, w))
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/folder", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		assert.Equal(t, http.StatusBadRequest, e.do(req).Code)
	})

	t.Run("existing", func(t *testing.T) {
		w := e.postJSON("/api/folder", gin.H{"name": "X"})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, errorOf(t, w), fs.ErrAlreadyExists.Error())
	})

	t.Run("separator in name", func(t *testing.T) {
		w := e.postJSON("/api/folder", gin.H{"name": "a/b"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("escaping name", func(t *testing.T) {
		w := e.postJSON("/api/folder", gin.H{"name": "../../evil"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, fs.AccessDeniedMessage, errorOf(t, w))
	})

	t.Run("traversal", func(t *testing.T) {
		w := e.postJSON("/api/folder", gin.H{"path": "../..", "name": "evil"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, fs.TraversalMessage, errorOf(t, w))
	})
}

func TestDelete(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(e.root, "tree", "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(e.root, "tree", "sub", "f"), []byte("f"), 0644))

	del := func(path string) *httptest.ResponseRecorder {
		return e.do(httptest.NewRequest(http.MethodDelete, "/api/delete?path="+path, nil))
	}

	w := del("tree")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.NoDirExists(t, filepath.Join(e.root, "tree"))

	assert.Equal(t, http.StatusNotFound, del("tree").Code)
	assert.Equal(t, http.StatusForbidden, del("").Code)
	assert.DirExists(t, e.root)

	w = del("../../etc")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, fs.TraversalMessage, errorOf(t, w))
}

func TestRename(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(e.root, "f.txt"), []byte("bytes of f"), 0644))

	t.Run("renamed", func(t *testing.T) {
		w := e.postJSON("/api/rename", gin.H{"path": "f.txt", "newName": "g.txt"})
		require.Equal(t, http.StatusOK, w.Code)

		w = e.get("/api/view?path=g.txt")
		assert.Equal(t, "bytes of f", w.Body.String())
		assert.NoFileExists(t, filepath.Join(e.root, "f.txt"))
	})

	t.Run("missing newName", func(t *testing.T) {
		w := e.postJSON("/api/rename", gin.H{"path": "g.txt"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "New name required", errorOf(t, w))
	})

	t.Run("missing target", func(t *testing.T) {
		w := e.postJSON("/api/rename", gin.H{"path": "nope", "newName": "x"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("escape", func(t *testing.T) {
		w := e.postJSON("/api/rename", gin.H{"path": "g.txt", "newName": "../../../tmp/g.txt"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, fs.AccessDeniedMessage, errorOf(t, w))
		assert.FileExists(t, filepath.Join(e.root, "g.txt"))
	})
}

func TestUpload(t *testing.T) {
	e := newTestEnv(t)

	t.Run("overwrite", func(t *testing.T) {
		w := e.upload(t, "inbox", "a.txt", "first")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `{"success":true}`, w.Body.String())
		assert.Equal(t, "first", e.get("/api/view?path=inbox/a.txt").Body.String())

		w = e.upload(t, "inbox", "a.txt", "second")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "second", e.get("/api/view?path=inbox/a.txt").Body.String())
	})

	t.Run("traversal is plain text", func(t *testing.T) {
		w := e.upload(t, "../../tmp", "a.txt", "x")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, fs.TraversalMessage, w.Body.String())
		assert.NotContains(t, w.Header().Get("Content-Type"), "json")
	})

	t.Run("missing file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
		w := e.do(req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No file uploaded", w.Body.String())
	})
}

func TestTraversalMetric(t *testing.T) {
	e := newTestEnv(t)
	e.get("/api/files?path=../..")
	e.upload(t, "../..", "x", "x")

	srv := httptest.NewServer(e.router)
	defer srv.Close()
	conn, _, err := ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(&websocket.ServiceMessage{Service: "fs", Id: "../../etc", Action: "list"}))
	var reply websocket.ServiceMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, fs.TraversalMessage, reply.Error)

	w := e.get("/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_traversal_rejections 3")
}

func TestNoRoute(t *testing.T) {
	e := newTestEnv(t)

	w := e.get("/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "desk")

	w = e.get("/api/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found", errorOf(t, w))

	assert.Equal(t, http.StatusNotFound, e.get("/missing.css").Code)
}

func TestSession(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	conn, _, err := ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(&websocket.ServiceMessage{Service: "fs", Action: "mkdir", Data: json.RawMessage(`{"name":"fromws"}`)}))

	var reply websocket.ServiceMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "fs", reply.Service)
	assert.Empty(t, reply.Error)
	assert.DirExists(t, filepath.Join(e.root, "fromws"))

	assert.Equal(t, 1, e.hub.Len())
}
