package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 服务内的 prometheus 指标。零值或 nil 都可以安全调用
type Metrics struct {
	requests       *prometheus.CounterVec
	friendRequests *prometheus.CounterVec
	locations      *prometheus.CounterVec
	messages       prometheus.Counter
	streams        *prometheus.GaugeVec
	outbox         *prometheus.CounterVec
	drops          prometheus.CounterFunc

	reg prometheus.Registerer
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lee_social",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		friendRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lee_social",
			Subsystem: "friendship",
			Name:      "transitions_total",
			Help:      "Friendship state transitions",
		}, []string{"transition"}),
		locations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lee_social",
			Subsystem: "location",
			Name:      "updates_total",
			Help:      "Location updates by source",
		}, []string{"source"}),
		messages: f.NewCounter(prometheus.CounterOpts{
			Namespace: "lee_social",
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Direct messages sent",
		}),
		streams: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "lee_social",
			Subsystem: "stream",
			Name:      "active",
			Help:      "Open live streams by kind",
		}, []string{"kind"}),
		outbox: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lee_social",
			Subsystem: "outbox",
			Name:      "deliveries_total",
			Help:      "Outbox deliveries by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveRequest(route, code string) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(route, code).Inc()
}

func (m *Metrics) FriendshipTransition(transition string) {
	if m == nil || m.friendRequests == nil {
		return
	}
	m.friendRequests.WithLabelValues(transition).Inc()
}

func (m *Metrics) LocationUpdate(source string) {
	if m == nil || m.locations == nil {
		return
	}
	m.locations.WithLabelValues(source).Inc()
}

func (m *Metrics) MessageSent() {
	if m == nil || m.messages == nil {
		return
	}
	m.messages.Inc()
}

// StreamOpened 返回的函数在流结束时调用
func (m *Metrics) StreamOpened(kind string) func() {
	if m == nil || m.streams == nil {
		return func() {}
	}
	g := m.streams.WithLabelValues(kind)
	g.Inc()
	return g.Dec
}

func (m *Metrics) OutboxDelivery(result string) {
	if m == nil || m.outbox == nil {
		return
	}
	m.outbox.WithLabelValues(result).Inc()
}

// WatchBrokerDrops 进程内广播因订阅方跟不上丢掉的消息数，抓取时读取。只能调用一次
func (m *Metrics) WatchBrokerDrops(dropped func() int64) {
	if m == nil || m.reg == nil || dropped == nil {
		return
	}
	m.drops = promauto.With(m.reg).NewCounterFunc(prometheus.CounterOpts{
		Namespace: "lee_social",
		Subsystem: "broker",
		Name:      "dropped_total",
		Help:      "Broadcast messages dropped because a subscriber buffer was full",
	}, func() float64 { return float64(dropped()) })
}
