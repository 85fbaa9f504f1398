package converter

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/backdroplabs/backdrop/container"
	"github.com/backdroplabs/backdrop/internal/instance"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Options struct {
	Binary  string
	TempDir string
	Timeout time.Duration
}

type Instance struct {
	options Options

	loadOnce sync.Once
	path     string
	loadErr  error
}

func New(o Options) instance.Converter {
	if o.Binary == "" {
		o.Binary = "magick"
	}

	if o.TempDir == "" {
		o.TempDir = os.TempDir()
	}

	return &Instance{options: o}
}

// load resolves the conversion binary exactly once per process; concurrent
// first callers block on the same lookup instead of re-triggering it.
func (i *Instance) load() error {
	i.loadOnce.Do(func() {
		i.path, i.loadErr = exec.LookPath(i.options.Binary)
		if i.loadErr == nil {
			zap.S().Infow("conversion binary resolved",
				"binary", i.path,
			)
		}
	})

	return i.loadErr
}

func (i *Instance) Available() bool {
	return i.load() == nil
}

func (i *Instance) Convert(ctx context.Context, data []byte, targetMediaType string, quality float64) ([][]byte, error) {
	if err := i.load(); err != nil {
		return nil, multierr.Append(fmt.Errorf("failed at resolve conversion binary"), err)
	}

	ext, err := extensionFor(targetMediaType)
	if err != nil {
		return nil, err
	}

	if i.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.options.Timeout)
		defer cancel()
	}

	id := uuid.New().String()
	tmpDir := path.Join(i.options.TempDir, id)

	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return nil, multierr.Append(fmt.Errorf("failed at mkdir tmpDir"), err)
	}

	defer os.RemoveAll(tmpDir)

	inputFile := path.Join(tmpDir, "input")

	if err := os.WriteFile(inputFile, data, 0600); err != nil {
		return nil, multierr.Append(fmt.Errorf("failed at write input file"), err)
	}

	q := int(math.Round(quality * 100))
	if q < 1 {
		q = 1
	} else if q > 100 {
		q = 100
	}

	out, err := exec.CommandContext(ctx,
		i.path,
		inputFile,
		"-quality", strconv.Itoa(q),
		path.Join(tmpDir, "output."+ext),
	).CombinedOutput()
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed at %s", i.options.Binary), multierr.Append(err, fmt.Errorf("%s failed: %s", i.options.Binary, out)))
	}

	blobs, err := collectOutputs(tmpDir, ext)
	if err != nil {
		return nil, err
	}

	if len(blobs) == 0 {
		return nil, fmt.Errorf("%s produced no output", i.options.Binary)
	}

	return blobs, nil
}

// collectOutputs gathers the converted blobs. A single-frame input yields
// output.<ext>; multi-frame containers make the tool emit output-0.<ext>,
// output-1.<ext> and so on.
func collectOutputs(tmpDir string, ext string) ([][]byte, error) {
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed at read tmpDir"), err)
	}

	names := []string{}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "output") || !strings.HasSuffix(name, "."+ext) {
			continue
		}

		names = append(names, name)
	}

	sort.Strings(names)

	blobs := make([][]byte, 0, len(names))

	for _, name := range names {
		data, err := os.ReadFile(path.Join(tmpDir, name))
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("failed at read output %s", name), err)
		}

		blobs = append(blobs, data)
	}

	return blobs, nil
}

func extensionFor(mediaType string) (string, error) {
	switch mediaType {
	case container.MimeJPEG:
		return "jpg", nil
	case container.MimePNG:
		return "png", nil
	case container.MimeWEBP:
		return "webp", nil
	default:
		return "", fmt.Errorf("unsupported conversion target: %s", mediaType)
	}
}
