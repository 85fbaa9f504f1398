package store

import (
	"fmt"
	"os"
	"path"

	"github.com/backdroplabs/backdrop/internal/instance"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

type Options struct {
	Dir string
}

// Instance persists each key as its own file under Dir. Writes go through a
// uniquely named temp file followed by a rename so readers never observe a
// partially written value.
type Instance struct {
	options Options
}

func New(o Options) (instance.Store, error) {
	if o.Dir == "" {
		o.Dir = "data"
	}

	if err := os.MkdirAll(o.Dir, 0700); err != nil {
		return nil, multierr.Append(fmt.Errorf("failed at mkdir store dir"), err)
	}

	return &Instance{options: o}, nil
}

func (i *Instance) Get(key string) (string, bool, error) {
	data, err := os.ReadFile(path.Join(i.options.Dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}

		return "", false, multierr.Append(fmt.Errorf("failed at read key %s", key), err)
	}

	return string(data), true, nil
}

func (i *Instance) Set(key string, value string) error {
	tmp := path.Join(i.options.Dir, key+"."+uuid.New().String()+".tmp")

	if err := os.WriteFile(tmp, []byte(value), 0600); err != nil {
		return multierr.Append(fmt.Errorf("failed at write key %s", key), err)
	}

	if err := os.Rename(tmp, path.Join(i.options.Dir, key)); err != nil {
		_ = os.Remove(tmp)

		return multierr.Append(fmt.Errorf("failed at rename key %s", key), err)
	}

	return nil
}
