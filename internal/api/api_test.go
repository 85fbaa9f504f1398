package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"
	"time"

	"github.com/backdroplabs/backdrop/internal/configure"
	"github.com/backdroplabs/backdrop/internal/global"
	"github.com/backdroplabs/backdrop/internal/optimizer"
	"github.com/backdroplabs/backdrop/internal/svc/converter"
	"github.com/backdroplabs/backdrop/internal/svc/prometheus"
	"github.com/backdroplabs/backdrop/internal/svc/store"
	"github.com/backdroplabs/backdrop/internal/testutil"
)

func testServer(t *testing.T, bind string) (context.CancelFunc, <-chan struct{}) {
	t.Helper()

	config := &configure.Config{}
	config.API.Enabled = true
	config.API.Bind = bind
	config.API.MaxUploadBytes = 32 << 20
	config.Optimizer.Desktop = configure.VariantConfig{Width: 1920, Quality: 0.8}
	config.Optimizer.Mobile = configure.VariantConfig{Width: 720, Quality: 0.7}
	config.History.Limit = 20

	gCtx, cancel := global.WithCancel(global.New(context.Background(), config))

	gCtx.Inst().Converter = converter.NewMock()
	gCtx.Inst().Store = store.NewMock()
	gCtx.Inst().Prometheus = prometheus.New(prometheus.Options{})

	gate := optimizer.NewGate(gCtx, optimizer.New(gCtx), optimizer.NewHistory(gCtx))

	done := New(gCtx, gate)

	time.Sleep(time.Millisecond * 50)

	return cancel, done
}

func testPNG(t *testing.T, width int, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: 0x80,
				A: 0xff,
			})
		}
	}

	buf := bytes.Buffer{}
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal("failed to encode test image: ", err)
	}

	return buf.Bytes()
}

func multipartUpload(t *testing.T, name string, mediaType string, data []byte) (string, io.Reader) {
	t.Helper()

	body := bytes.Buffer{}
	w := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	header.Set("Content-Type", mediaType)

	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatal("failed to build multipart body: ", err)
	}

	_, _ = part.Write(data)
	_ = w.Close()

	return w.FormDataContentType(), &body
}

func getJSON(t *testing.T, url string, expectedStatus int, v interface{}) {
	t.Helper()

	resp, err := http.DefaultClient.Get(url)
	testutil.IsNil(t, err, "No error")

	defer resp.Body.Close()

	testutil.Assert(t, expectedStatus, resp.StatusCode, "response code")

	if v != nil {
		testutil.IsNil(t, json.NewDecoder(resp.Body).Decode(v), "response decodes")
	}
}

func TestAPI(t *testing.T) {
	cancel, done := testServer(t, "127.0.1.1:3100")
	base := "http://127.0.1.1:3100"

	// Nothing has been optimized yet.
	getJSON(t, base+"/report", http.StatusNotFound, nil)
	getJSON(t, base+"/variant/desktop", http.StatusNotFound, nil)

	// A happy-path upload.
	pngData := testPNG(t, 640, 480)

	contentType, body := multipartUpload(t, "photo.png", "image/png", pngData)
	resp, err := http.Post(base+"/optimize", contentType, body)
	testutil.IsNil(t, err, "No error")
	testutil.Assert(t, http.StatusOK, resp.StatusCode, "response code")

	applied := reportResponse{}
	testutil.IsNil(t, json.NewDecoder(resp.Body).Decode(&applied), "response decodes")
	_ = resp.Body.Close()

	testutil.IsNotNil(t, applied.Report, "report is returned")
	testutil.Assert(t, "photo.png", applied.Report.Original.Name, "original name")
	testutil.Assert(t, 640, applied.Report.Original.Width, "original width")
	testutil.Assert(t, 640, applied.Report.Desktop.Width, "desktop width never upscales")
	testutil.Assert(t, 480, applied.Report.Mobile.Height, "mobile height never upscales")

	// The report endpoint now serves the same run.
	current := reportResponse{}
	getJSON(t, base+"/report", http.StatusOK, &current)
	testutil.Assert(t, applied.Report.Desktop.SHA3, current.Report.Desktop.SHA3, "served report matches")
	testutil.Assert(t, "", current.Error, "no error state")

	// Variant bytes come back as decodable jpeg.
	vResp, err := http.DefaultClient.Get(base + "/variant/desktop")
	testutil.IsNil(t, err, "No error")
	testutil.Assert(t, http.StatusOK, vResp.StatusCode, "response code")
	testutil.Assert(t, "image/jpeg", vResp.Header.Get("Content-Type"), "variant content type")

	vData, err := io.ReadAll(vResp.Body)
	_ = vResp.Body.Close()
	testutil.IsNil(t, err, "No error")
	testutil.Assert(t, applied.Report.Desktop.Size, len(vData), "variant size matches the report")

	vImg, err := jpeg.Decode(bytes.NewReader(vData))
	testutil.IsNil(t, err, "variant decodes as jpeg")
	testutil.Assert(t, 640, vImg.Bounds().Dx(), "variant width")

	// Unsupported uploads carry the user-facing message and leave the
	// current report alone.
	contentType, body = multipartUpload(t, "note.txt", "text/plain", []byte("just words"))
	resp, err = http.Post(base+"/optimize", contentType, body)
	testutil.IsNil(t, err, "No error")
	testutil.Assert(t, http.StatusUnsupportedMediaType, resp.StatusCode, "response code")

	rejection := errorResponse{}
	testutil.IsNil(t, json.NewDecoder(resp.Body).Decode(&rejection), "response decodes")
	_ = resp.Body.Close()
	testutil.Assert(t, "Unsupported file type. Please choose an image file.", rejection.Error, "exact rejection message")

	kept := reportResponse{}
	getJSON(t, base+"/report", http.StatusOK, &kept)
	testutil.IsNotNil(t, kept.Report, "previous report survives a failure")
	testutil.Assert(t, "photo.png", kept.Report.Original.Name, "previous upload still served")
	testutil.Assert(t, rejection.Error, kept.Error, "failure is surfaced next to the kept report")

	// Raw-body uploads with per-request overrides.
	req, err := http.NewRequest(http.MethodPost, base+"/optimize?desktop_width=320&mobile_width=100", bytes.NewReader(pngData))
	testutil.IsNil(t, err, "No error")
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("X-File-Name", "raw.png")

	resp, err = http.DefaultClient.Do(req)
	testutil.IsNil(t, err, "No error")
	testutil.Assert(t, http.StatusOK, resp.StatusCode, "response code")

	overridden := reportResponse{}
	testutil.IsNil(t, json.NewDecoder(resp.Body).Decode(&overridden), "response decodes")
	_ = resp.Body.Close()
	testutil.Assert(t, "raw.png", overridden.Report.Original.Name, "raw upload keeps its name")
	testutil.Assert(t, 320, overridden.Report.Desktop.Width, "desktop width override applies")
	testutil.Assert(t, 100, overridden.Report.Mobile.Width, "mobile width override applies")

	// History saw both successes, newest first, and clears.
	entries := []optimizer.LogEntry{}
	getJSON(t, base+"/history", http.StatusOK, &entries)
	testutil.Assert(t, 2, len(entries), "both successes are logged")
	testutil.Assert(t, "raw.png", entries[0].FileName, "newest entry first")
	testutil.Assert(t, "photo.png", entries[1].FileName, "older entry second")

	req, err = http.NewRequest(http.MethodDelete, base+"/history", nil)
	testutil.IsNil(t, err, "No error")

	resp, err = http.DefaultClient.Do(req)
	testutil.IsNil(t, err, "No error")
	_ = resp.Body.Close()
	testutil.Assert(t, http.StatusNoContent, resp.StatusCode, "response code")

	entries = []optimizer.LogEntry{}
	getJSON(t, base+"/history", http.StatusOK, &entries)
	testutil.Assert(t, 0, len(entries), "history clears")

	cancel()

	<-done

	time.Sleep(time.Second)
}
