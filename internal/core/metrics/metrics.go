package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config 指标配置
type Config struct {
	// Namespace 指标命名空间
	Namespace string

	// Instance 节点实例标识，作为常量标签
	Instance string
}

// Metrics 节点指标集合
type Metrics struct {
	verdicts      *prometheus.CounterVec
	errorsSent    *prometheus.CounterVec
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	storeResults  *prometheus.CounterVec
	bytesIn       prometheus.Counter
	bytesOut      prometheus.Counter
	opaqueEntries prometheus.Gauge
	neighbors     prometheus.Gauge
}

// New 创建并注册指标
func New(cfg Config, reg prometheus.Registerer) (*Metrics, error) {
	var labels prometheus.Labels
	if cfg.Instance != "" {
		labels = prometheus.Labels{"instance_id": cfg.Instance}
	}
	ns := cfg.Namespace

	m := &Metrics{
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "routing", Name: "messages_total",
			Help: "Inbound messages by forwarding verdict.", ConstLabels: labels,
		}, []string{"verdict"}),
		errorsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "routing", Name: "errors_sent_total",
			Help: "Error replies sent by error code.", ConstLabels: labels,
		}, []string{"code"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "routing", Name: "requests_total",
			Help: "Locally originated requests by content type and result.", ConstLabels: labels,
		}, []string{"type", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "routing", Name: "request_seconds",
			Help:    "Round-trip time of answered requests.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), ConstLabels: labels,
		}, []string{"type"}),
		storeResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "storage", Name: "requests_total",
			Help: "Storage requests handled by this node by operation and result.", ConstLabels: labels,
		}, []string{"op", "result"}),
		bytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "link", Name: "received_bytes_total",
			Help: "Bytes received from neighbors.", ConstLabels: labels,
		}),
		bytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "link", Name: "sent_bytes_total",
			Help: "Bytes sent to neighbors.", ConstLabels: labels,
		}),
		opaqueEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: "routing", Name: "opaque_ids",
			Help: "Live entries in the opaque id table.", ConstLabels: labels,
		}),
		neighbors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: "link", Name: "neighbors",
			Help: "Connected neighbors.", ConstLabels: labels,
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{
			m.verdicts, m.errorsSent, m.requests, m.latency, m.storeResults,
			m.bytesIn, m.bytesOut, m.opaqueEntries, m.neighbors,
		} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// ObserveVerdict 记录一条入站消息的处理结果
func (m *Metrics) ObserveVerdict(verdict string) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(verdict).Inc()
}

// ObserveErrorSent 记录一次错误应答
func (m *Metrics) ObserveErrorSent(code string) {
	if m == nil {
		return
	}
	m.errorsSent.WithLabelValues(code).Inc()
}

// ObserveRequest 记录一次本地请求的结果，result 为 "ok" 时同时记录耗时
func (m *Metrics) ObserveRequest(contentType, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(contentType, result).Inc()
	if result == "ok" {
		m.latency.WithLabelValues(contentType).Observe(d.Seconds())
	}
}

// ObserveStorage 记录一次存储请求处理结果
func (m *Metrics) ObserveStorage(op, result string) {
	if m == nil {
		return
	}
	m.storeResults.WithLabelValues(op, result).Inc()
}

// AddBytesIn 累加接收字节
func (m *Metrics) AddBytesIn(n int) {
	if m == nil {
		return
	}
	m.bytesIn.Add(float64(n))
}

// AddBytesOut 累加发送字节
func (m *Metrics) AddBytesOut(n int) {
	if m == nil {
		return
	}
	m.bytesOut.Add(float64(n))
}

// SetOpaqueEntries 设置不透明标识表条目数
func (m *Metrics) SetOpaqueEntries(n int) {
	if m == nil {
		return
	}
	m.opaqueEntries.Set(float64(n))
}

// SetNeighbors 设置邻居数
func (m *Metrics) SetNeighbors(n int) {
	if m == nil {
		return
	}
	m.neighbors.Set(float64(n))
}
