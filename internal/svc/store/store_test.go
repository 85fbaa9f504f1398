package store

import (
	"testing"

	"github.com/backdroplabs/backdrop/internal/testutil"
)

func Test(t *testing.T) {
	t.Parallel()

	inst, err := New(Options{Dir: t.TempDir()})
	testutil.IsNil(t, err, "store is created")

	_, ok, err := inst.Get("history")
	testutil.IsNil(t, err, "missing key reads cleanly")
	testutil.Assert(t, false, ok, "missing key is a miss")

	testutil.IsNil(t, inst.Set("history", `[{"id":"a"}]`), "value is written")

	value, ok, err := inst.Get("history")
	testutil.IsNil(t, err, "value reads cleanly")
	testutil.Assert(t, true, ok, "value is a hit")
	testutil.Assert(t, `[{"id":"a"}]`, value, "value round-trips")

	testutil.IsNil(t, inst.Set("history", `[]`), "value is overwritten")

	value, ok, err = inst.Get("history")
	testutil.IsNil(t, err, "overwritten value reads cleanly")
	testutil.Assert(t, true, ok, "overwritten value is a hit")
	testutil.Assert(t, `[]`, value, "latest write wins")
}
