package httpapi

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/AnyUserName/stitch-cli/internal/job"
)

func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return buf.Bytes()
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

type submission struct {
	options string
	images  [][]byte
	stamp   []byte
}

func multipartBody(t *testing.T, s submission) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if s.options != "" {
		if err := mw.WriteField("options", s.options); err != nil {
			t.Fatal(err)
		}
	}
	for i, raw := range s.images {
		part, err := mw.CreateFormFile("images", "img-"+string(rune('a'+i))+".png")
		if err != nil {
			t.Fatal(err)
		}
		part.Write(raw)
	}
	if s.stamp != nil {
		part, err := mw.CreateFormFile("watermark_image", "stamp.png")
		if err != nil {
			t.Fatal(err)
		}
		part.Write(s.stamp)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

func newTestServer(t *testing.T) (*httptest.Server, *job.Runner) {
	t.Helper()
	runner := job.NewRunner(1, zerolog.Nop())
	t.Cleanup(runner.Close)
	srv := httptest.NewServer(NewRouter(runner, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, runner
}

func submit(t *testing.T, srv *httptest.Server, s submission) SubmitResponse {
	t.Helper()
	body, contentType := multipartBody(t, s)
	resp, err := http.Post(srv.URL+"/v1/jobs", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status: %d", resp.StatusCode)
	}
	var sr SubmitResponse
	if err := decodeJSON(resp, &sr); err != nil {
		t.Fatalf("submit body: %v", err)
	}
	if sr.ID == "" {
		t.Fatal("submit reply missing job id")
	}
	return sr
}

// waitTerminal drains the job's event stream, which closes after the
// terminal event.
func waitTerminal(t *testing.T, runner *job.Runner, id string) {
	t.Helper()
	j, ok := runner.Lookup(id)
	if !ok {
		t.Fatalf("job %s not registered", id)
	}
	for range j.Events() {
	}
}

func TestSubmitAndFetchResult(t *testing.T) {
	srv, runner := newTestServer(t)

	sr := submit(t, srv, submission{
		options: `{"axis":"stacked","gap":2,"format":"png"}`,
		images: [][]byte{
			pngBytes(t, 8, 8, color.NRGBA{R: 255, A: 255}),
			pngBytes(t, 8, 8, color.NRGBA{B: 255, A: 255}),
		},
	})
	waitTerminal(t, runner, sr.ID)

	// Status reflects completion.
	resp, err := http.Get(srv.URL + "/v1/jobs/" + sr.ID)
	if err != nil {
		t.Fatal(err)
	}
	var st job.Status
	if err := decodeJSON(resp, &st); err != nil {
		t.Fatalf("status body: %v", err)
	}
	if st.State != job.StateCompleted || st.Progress != 1 {
		t.Errorf("status: %+v", st)
	}

	// Result delivers the encoded composite.
	resp, err = http.Get(srv.URL + "/v1/jobs/" + sr.ID + "/result")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("result status: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type: %q", ct)
	}
	decoded, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("result decode: %v", err)
	}
	// Two 8x8 images with one 2px gap.
	if decoded.Bounds().Dx() != 8 || decoded.Bounds().Dy() != 18 {
		t.Errorf("result: got %v, want 8x18", decoded.Bounds())
	}
}

func TestSubmitWithWatermarkStamp(t *testing.T) {
	srv, runner := newTestServer(t)

	sr := submit(t, srv, submission{
		options: `{"format":"png","watermark_image_scale":0.5,"watermark_image_opacity":0.5}`,
		images:  [][]byte{pngBytes(t, 40, 40, color.NRGBA{A: 255})},
		stamp:   pngBytes(t, 10, 10, color.NRGBA{R: 255, G: 255, B: 255, A: 255}),
	})
	waitTerminal(t, runner, sr.ID)

	resp, err := http.Get(srv.URL + "/v1/jobs/" + sr.ID + "/result")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("result status: %d", resp.StatusCode)
	}
}

func TestSubmitRejectsEmptySubmission(t *testing.T) {
	srv, _ := newTestServer(t)

	body, contentType := multipartBody(t, submission{options: `{"format":"png"}`})
	resp, err := http.Post(srv.URL+"/v1/jobs", contentType, body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestSubmitRejectsMalformedOptions(t *testing.T) {
	srv, _ := newTestServer(t)

	body, contentType := multipartBody(t, submission{
		options: `{"axis":`,
		images:  [][]byte{pngBytes(t, 4, 4, color.NRGBA{A: 255})},
	})
	resp, err := http.Post(srv.URL+"/v1/jobs", contentType, body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestFailedJobResult(t *testing.T) {
	srv, runner := newTestServer(t)

	sr := submit(t, srv, submission{
		options: `{"format":"png"}`,
		images:  [][]byte{[]byte("not an image")},
	})
	waitTerminal(t, runner, sr.ID)

	resp, err := http.Get(srv.URL + "/v1/jobs/" + sr.ID + "/result")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422", resp.StatusCode)
	}
}

func TestUnknownJobRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, url := range []string{
		srv.URL + "/v1/jobs/nope",
		srv.URL + "/v1/jobs/nope/result",
	} {
		resp, err := http.Get(url)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: got %d, want 404", url, resp.StatusCode)
		}
	}

	resp, err := http.Post(srv.URL+"/v1/jobs/nope/cancel", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cancel: got %d, want 404", resp.StatusCode)
	}
}

func TestCancelAcknowledged(t *testing.T) {
	srv, runner := newTestServer(t)

	sr := submit(t, srv, submission{
		options: `{"format":"png"}`,
		images:  [][]byte{pngBytes(t, 4, 4, color.NRGBA{A: 255})},
	})

	resp, err := http.Post(srv.URL+"/v1/jobs/"+sr.ID+"/cancel", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("cancel status: got %d, want 202", resp.StatusCode)
	}

	// Whether the cancel landed before or after the single image was
	// drawn, the job reaches a terminal state either way.
	waitTerminal(t, runner, sr.ID)
	j, _ := runner.Lookup(sr.ID)
	if st := j.Status(); !st.State.Terminal() {
		t.Errorf("state after cancel: %+v", st)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health: %d", resp.StatusCode)
	}
}
