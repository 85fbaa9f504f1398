package global

import "github.com/backdroplabs/backdrop/internal/instance"

type Instances struct {
	Converter  instance.Converter
	Store      instance.Store
	Prometheus instance.Prometheus
}
