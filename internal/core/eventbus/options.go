package eventbus

// subscriptionSettings 订阅设置
type subscriptionSettings struct {
	buffer int
}

// emitterSettings 发射器设置
type emitterSettings struct {
	stateful bool
}

// SubscriptionOpt 订阅选项
type SubscriptionOpt func(*subscriptionSettings)

// EmitterOpt 发射器选项
type EmitterOpt func(*emitterSettings)

// BufSize 设置订阅缓冲区大小，小于 0 时按 0 处理
func BufSize(n int) SubscriptionOpt {
	return func(s *subscriptionSettings) {
		s.buffer = max(n, 0)
	}
}

// Stateful 保留最后一个事件并在订阅时回放
func Stateful() EmitterOpt {
	return func(s *emitterSettings) {
		s.stateful = true
	}
}
