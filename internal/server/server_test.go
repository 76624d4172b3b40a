package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	imagesquarer "github.com/menta2k/image-squarer"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	srv := httptest.NewServer(New(imagesquarer.New(), log, opts).Router())
	t.Cleanup(srv.Close)
	return srv
}

func pngFile(t *testing.T) []byte {
	t.Helper()
	img := imaging.New(80, 40, color.White)
	for y := 10; y < 30; y++ {
		for x := 20; x < 40; x++ {
			img.Set(x, y, color.Black)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, url, rd)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func upload(t *testing.T, url string, files map[string][]byte, order []string) (int, map[string]json.RawMessage) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, name := range order {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(files[name])
	}
	mw.Close()

	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out map[string]json.RawMessage
	json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func createSession(t *testing.T, base string, size int) SessionResponse {
	t.Helper()
	var s SessionResponse
	if code := doJSON(t, "POST", base+"/sessions", map[string]int{"size": size}, &s); code != http.StatusCreated {
		t.Fatalf("create session: status %d", code)
	}
	return s
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Options{})
	var out map[string]string
	if code := doJSON(t, "GET", srv.URL+"/healthz", nil, &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out["status"] != "ok" || out["version"] != imagesquarer.Version {
		t.Errorf("Unexpected health %v", out)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	srv := newTestServer(t, Options{})

	var e ErrorResponse
	if code := doJSON(t, "POST", srv.URL+"/sessions", map[string]int{"size": 49}, &e); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for size 49, got %d", code)
	}
	if e.Code != "invalid_size" {
		t.Errorf("Expected invalid_size, got %s", e.Code)
	}

	for _, size := range []int{50, 5000} {
		s := createSession(t, srv.URL, size)
		if s.Size != size || s.ID == "" || s.Locked {
			t.Errorf("Unexpected session %+v", s)
		}
	}
}

func TestUploadListDownloadClear(t *testing.T) {
	srv := newTestServer(t, Options{Suffix: "-optimg"})
	s := createSession(t, srv.URL, 120)
	base := srv.URL + "/sessions/" + s.ID

	files := map[string][]byte{
		"A.png": pngFile(t),
		"B.png": []byte("broken"),
		"C":     pngFile(t),
	}
	code, out := upload(t, base+"/images", files, []string{"A.png", "B.png", "C"})
	if code != http.StatusOK {
		t.Fatalf("upload status %d", code)
	}

	var results []UploadResult
	json.Unmarshal(out["results"], &results)
	if len(results) != 3 {
		t.Fatalf("Expected 3 upload results, got %d", len(results))
	}
	if results[0].Index == nil || *results[0].Index != 0 {
		t.Errorf("A.png: unexpected %+v", results[0])
	}
	if results[1].Code != "decode_error" || results[1].Index != nil {
		t.Errorf("B.png: expected decode_error, got %+v", results[1])
	}
	if results[2].Index == nil || *results[2].Index != 1 {
		t.Errorf("C: unexpected %+v", results[2])
	}

	var entries []ImageEntry
	doJSON(t, "GET", base+"/images?optimg=true", nil, &entries)
	if len(entries) != 2 || entries[0].DownloadName != "A-optimg.png" || entries[1].DownloadName != "C-optimg.jpg" {
		t.Errorf("Unexpected entries %+v", entries)
	}

	resp, err := http.Get(base + "/images/0")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("Content-Type") != "image/jpeg" {
		t.Errorf("Unexpected content type %s", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), `"A.png"`) {
		t.Errorf("Unexpected disposition %s", resp.Header.Get("Content-Disposition"))
	}
	img, err := jpeg.Decode(resp.Body)
	if err != nil {
		t.Fatalf("download is not a JPEG: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 120, 120) {
		t.Errorf("Expected 120x120, got %v", img.Bounds())
	}

	if code := doJSON(t, "GET", base+"/images/5", nil, nil); code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing image, got %d", code)
	}

	// Size is locked while results exist
	var e ErrorResponse
	if code := doJSON(t, "PUT", base+"/size", map[string]int{"size": 300}, &e); code != http.StatusConflict || e.Code != "session_locked" {
		t.Errorf("Expected 409 session_locked, got %d %s", code, e.Code)
	}

	var cleared SessionResponse
	doJSON(t, "DELETE", base+"/images", nil, &cleared)
	if cleared.Count != 0 || cleared.Locked {
		t.Errorf("Expected cleared session, got %+v", cleared)
	}

	var updated SessionResponse
	if code := doJSON(t, "PUT", base+"/size", map[string]int{"size": 300}, &updated); code != http.StatusOK || updated.Size != 300 {
		t.Errorf("Expected size change after clear, got %d %+v", code, updated)
	}
}

func TestUploadWithoutFiles(t *testing.T) {
	srv := newTestServer(t, Options{})
	s := createSession(t, srv.URL, 100)

	code, _ := upload(t, srv.URL+"/sessions/"+s.ID+"/images", nil, nil)
	if code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", code)
	}
}

func TestUnknownSession(t *testing.T) {
	srv := newTestServer(t, Options{})

	var e ErrorResponse
	if code := doJSON(t, "GET", srv.URL+"/sessions/nope", nil, &e); code != http.StatusNotFound || e.Code != "not_found" {
		t.Errorf("Expected 404 not_found, got %d %s", code, e.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	srv := newTestServer(t, Options{})
	s := createSession(t, srv.URL, 100)

	if code := doJSON(t, "DELETE", srv.URL+"/sessions/"+s.ID, nil, nil); code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", code)
	}
	if code := doJSON(t, "GET", srv.URL+"/sessions/"+s.ID, nil, nil); code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", code)
	}
}
