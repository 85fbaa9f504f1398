package converter

import (
	"context"
	"os"
	"path"
	"testing"

	"github.com/backdroplabs/backdrop/container"
	"github.com/backdroplabs/backdrop/internal/testutil"
)

func TestUnresolvableBinary(t *testing.T) {
	t.Parallel()

	inst := New(Options{Binary: "backdrop-no-such-binary"})
	testutil.Assert(t, false, inst.Available(), "missing binary is unavailable")

	_, err := inst.Convert(context.Background(), []byte("payload"), container.MimeJPEG, 0.8)
	testutil.IsNotNil(t, err, "conversion without a binary fails")
}

func TestUnsupportedTarget(t *testing.T) {
	t.Parallel()

	_, err := extensionFor("application/pdf")
	testutil.IsNotNil(t, err, "non-image targets are refused")

	ext, err := extensionFor(container.MimeJPEG)
	testutil.IsNil(t, err, "jpeg target resolves")
	testutil.Assert(t, "jpg", ext, "jpeg extension")
}

func TestCollectOutputs(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	write := func(name string, data string) {
		t.Helper()

		testutil.IsNil(t, os.WriteFile(path.Join(tmpDir, name), []byte(data), 0600), "fixture is written")
	}

	write("input", "the original payload")
	write("output-0.jpg", "frame zero")
	write("output-1.jpg", "frame one")
	write("notes.txt", "unrelated")

	blobs, err := collectOutputs(tmpDir, "jpg")
	testutil.IsNil(t, err, "outputs collect")
	testutil.Assert(t, 2, len(blobs), "only output frames collect")
	testutil.Assert(t, "frame zero", string(blobs[0]), "frames keep their order")
	testutil.Assert(t, "frame one", string(blobs[1]), "frames keep their order")
}

func TestCollectSingleOutput(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	testutil.IsNil(t, os.WriteFile(path.Join(tmpDir, "output.jpg"), []byte("the still"), 0600), "fixture is written")

	blobs, err := collectOutputs(tmpDir, "jpg")
	testutil.IsNil(t, err, "output collects")
	testutil.Assert(t, 1, len(blobs), "single frame collects")
	testutil.Assert(t, "the still", string(blobs[0]), "frame content survives")
}
