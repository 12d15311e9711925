package registry

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

	"github.com/relforge/relctl/pkg/logging"
)

func testLogger() *logging.Logger {
	log := logging.New(logging.ERROR, false)
	log.SetOutput(&bytes.Buffer{})
	return log
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv, err := NewServer(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func multipartUpload(t *testing.T, url string, files map[string]string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := writer.CreateFormFile("content", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(url+"/upload", writer.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestUploadAndList(t *testing.T) {
	srv, ts := newTestServer(t)

	resp := multipartUpload(t, ts.URL, map[string]string{
		"pkg-1.0.tar.gz":           "sdist bytes",
		"pkg-1.0-py3-none-any.whl": "wheel bytes",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d, want 201", resp.StatusCode)
	}

	// Files landed in the storage dir.
	if _, err := os.Stat(filepath.Join(srv.dir, "pkg-1.0.tar.gz")); err != nil {
		t.Errorf("stored artifact missing: %v", err)
	}

	listResp, err := http.Get(ts.URL + "/artifacts")
	if err != nil {
		t.Fatal(err)
	}
	defer listResp.Body.Close()

	var list struct {
		Artifacts []struct {
			Name string `json:"name"`
			Size int64  `json:"size"`
		} `json:"artifacts"`
		Count int `json:"count"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 2 {
		t.Errorf("artifact count = %d, want 2", list.Count)
	}
	if list.Artifacts[0].Name != "pkg-1.0-py3-none-any.whl" {
		t.Errorf("artifacts[0] = %s, want wheel first (sorted)", list.Artifacts[0].Name)
	}
}

func TestUploadWithoutContent(t *testing.T) {
	_, ts := newTestServer(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.Close()

	resp, err := http.Post(ts.URL+"/upload", writer.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for empty upload", resp.StatusCode)
	}
}

func TestUploadStripsPathComponents(t *testing.T) {
	srv, ts := newTestServer(t)

	resp := multipartUpload(t, ts.URL, map[string]string{
		"../escape.whl": "nope",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d, want 201", resp.StatusCode)
	}
	// Stored under the base name, inside the registry dir.
	if _, err := os.Stat(filepath.Join(srv.dir, "escape.whl")); err != nil {
		t.Errorf("artifact not stored under base name: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(srv.dir), "escape.whl")); err == nil {
		t.Error("artifact escaped the registry dir")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}

	mResp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer mResp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(mResp.Body)
	if !strings.Contains(buf.String(), "relctl_registry_uploads_total") {
		t.Error("metrics output missing upload counter")
	}
}
