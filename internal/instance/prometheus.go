package instance

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Prometheus interface {
	Register(r prometheus.Registerer)

	StartOptimize() func(success bool)

	ConvertInput() func()
	DecodeInput() func()
	RenderVariant() func()

	InputMediaType(string)
	RequestsSuperseded()
	TotalBytesIn(int)
	TotalBytesOut(int)
}
