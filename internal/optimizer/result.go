package optimizer

import (
	"time"

	"github.com/valyala/bytebufferpool"
)

// VariantResult is one finished downsize. The encoded JPEG lives in a pooled
// buffer; once the owning Report is released the bytes must not be touched.
type VariantResult struct {
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Size    int     `json:"size"`
	Quality float64 `json:"quality"`
	SHA3    string  `json:"sha3"`

	blob *bytebufferpool.ByteBuffer
}

// Bytes exposes the encoded variant. The slice aliases the pooled buffer, so
// callers copy it out before the report can be released.
func (v *VariantResult) Bytes() []byte {
	if v.blob == nil {
		return nil
	}

	return v.blob.B
}

func (v *VariantResult) release() {
	if v.blob == nil {
		return
	}

	bytebufferpool.Put(v.blob)
	v.blob = nil
}

// Original describes the input photo as decoded, before any scaling.
type Original struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Size      int    `json:"size"`
}

// Report is the full outcome of one optimize run.
type Report struct {
	Original   Original      `json:"original"`
	Desktop    VariantResult `json:"desktop"`
	Mobile     VariantResult `json:"mobile"`
	ElapsedMs  int64         `json:"elapsed_ms"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Release returns both variant blobs to the pool. It is called when the
// report is discarded, either superseded or replaced by a newer run.
func (r *Report) Release() {
	if r == nil {
		return
	}

	r.Desktop.release()
	r.Mobile.release()
}
