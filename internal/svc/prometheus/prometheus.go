package prometheus

import (
	"time"

	"github.com/backdroplabs/backdrop/internal/instance"
	"github.com/prometheus/client_golang/prometheus"
)

type Options struct {
	Labels prometheus.Labels
}

func copyLabels(p prometheus.Labels) prometheus.Labels {
	x := prometheus.Labels{}
	for k, v := range p {
		x[k] = v
	}

	return x
}

func New(o Options) instance.Prometheus {
	totalSuccessfulRequests := copyLabels(o.Labels)
	totalFailedRequests := copyLabels(o.Labels)
	currentRequests := copyLabels(o.Labels)
	requestDurationSeconds := copyLabels(o.Labels)
	convertInputDuration := copyLabels(o.Labels)
	decodeInputDuration := copyLabels(o.Labels)
	renderVariantDuration := copyLabels(o.Labels)
	requestsSuperseded := copyLabels(o.Labels)
	totalBytesIn := copyLabels(o.Labels)
	totalBytesOut := copyLabels(o.Labels)

	totalSuccessfulRequests["state"] = "successful"
	totalFailedRequests["state"] = "failed"

	totalBytesIn["direction"] = "in"
	totalBytesOut["direction"] = "out"

	return &Instance{
		totalSuccessfulRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "backdrop",
			Name:        "total_requests",
			Help:        "The total number of successful optimization requests",
			ConstLabels: totalSuccessfulRequests,
		}),
		totalFailedRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "backdrop",
			Name:        "total_requests",
			Help:        "The total number of failed optimization requests",
			ConstLabels: totalFailedRequests,
		}),
		currentRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "backdrop",
			Name:        "current_requests",
			Help:        "The current number of in-flight optimization requests",
			ConstLabels: currentRequests,
		}),
		requestDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "backdrop",
			Name:        "request_duration_seconds",
			Help:        "The seconds spent running optimization requests",
			ConstLabels: requestDurationSeconds,
		}),
		convertInputDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "backdrop",
			Name:        "convert_input_duration_seconds",
			Help:        "The seconds spent converting non-native inputs",
			ConstLabels: convertInputDuration,
		}),
		decodeInputDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "backdrop",
			Name:        "decode_input_duration_seconds",
			Help:        "The seconds spent decoding inputs",
			ConstLabels: decodeInputDuration,
		}),
		renderVariantDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "backdrop",
			Name:        "render_variant_duration_seconds",
			Help:        "The seconds spent resizing and encoding variants",
			ConstLabels: renderVariantDuration,
		}),
		requestsSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "backdrop",
			Name:        "requests_superseded",
			Help:        "The number of request outcomes discarded because a newer request took over",
			ConstLabels: requestsSuperseded,
		}),
		inputMediaType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "backdrop",
			Name:        "input_media_type",
			Help:        "The declared media types of uploaded inputs",
			ConstLabels: copyLabels(o.Labels),
		}, []string{"media_type"}),
		totalBytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "backdrop",
			Name:        "total_bytes",
			Help:        "The total number of input bytes accepted",
			ConstLabels: totalBytesIn,
		}),
		totalBytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "backdrop",
			Name:        "total_bytes",
			Help:        "The total number of encoded variant bytes produced",
			ConstLabels: totalBytesOut,
		}),
	}
}

type Instance struct {
	totalSuccessfulRequests prometheus.Counter
	totalFailedRequests     prometheus.Counter
	currentRequests         prometheus.Gauge
	requestDurationSeconds  prometheus.Histogram

	convertInputDurationSeconds  prometheus.Histogram
	decodeInputDurationSeconds   prometheus.Histogram
	renderVariantDurationSeconds prometheus.Histogram

	requestsSuperseded prometheus.Counter
	inputMediaType     *prometheus.CounterVec
	totalBytesIn       prometheus.Counter
	totalBytesOut      prometheus.Counter
}

func (m *Instance) Register(r prometheus.Registerer) {
	r.MustRegister(
		m.currentRequests,
		m.requestDurationSeconds,
		m.totalFailedRequests,
		m.totalSuccessfulRequests,

		m.convertInputDurationSeconds,
		m.decodeInputDurationSeconds,
		m.renderVariantDurationSeconds,

		m.requestsSuperseded,
		m.inputMediaType,
		m.totalBytesIn,
		m.totalBytesOut,
	)
}

func (m *Instance) StartOptimize() func(success bool) {
	start := time.Now()
	m.currentRequests.Inc()

	return func(success bool) {
		if success {
			m.totalSuccessfulRequests.Inc()
		} else {
			m.totalFailedRequests.Inc()
		}
		m.currentRequests.Dec()
		m.requestDurationSeconds.Observe(float64(time.Since(start)/time.Millisecond) / 1000)
	}
}

func (m *Instance) ConvertInput() func() {
	start := time.Now()

	return func() {
		m.convertInputDurationSeconds.Observe(float64(time.Since(start)/time.Millisecond) / 1000)
	}
}

func (m *Instance) DecodeInput() func() {
	start := time.Now()

	return func() {
		m.decodeInputDurationSeconds.Observe(float64(time.Since(start)/time.Millisecond) / 1000)
	}
}

func (m *Instance) RenderVariant() func() {
	start := time.Now()

	return func() {
		m.renderVariantDurationSeconds.Observe(float64(time.Since(start)/time.Millisecond) / 1000)
	}
}

func (m *Instance) InputMediaType(mediaType string) {
	if mediaType == "" {
		mediaType = "unknown"
	}
	m.inputMediaType.WithLabelValues(mediaType).Inc()
}

func (m *Instance) RequestsSuperseded() {
	m.requestsSuperseded.Inc()
}

func (m *Instance) TotalBytesIn(bytes int) {
	m.totalBytesIn.Add(float64(bytes))
}

func (m *Instance) TotalBytesOut(bytes int) {
	m.totalBytesOut.Add(float64(bytes))
}
