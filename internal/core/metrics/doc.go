// Package metrics 提供 Prometheus 监控指标
//
// 所有记录方法在 *Metrics 为 nil 时为空操作，组件无需判断指标是否启用。
//
//	m, _ := metrics.New(metrics.Config{Namespace: "reload"}, prometheus.NewRegistry())
//	m.ObserveVerdict("forwarded")
package metrics
