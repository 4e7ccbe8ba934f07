package reload

import (
	"github.com/dep2p/go-reload/internal/core/dht"
	"github.com/dep2p/go-reload/internal/core/eventbus"
	"github.com/dep2p/go-reload/pkg/message"
)

// ════════════════════════════════════════════════════════════════════════════
//                              标识
// ════════════════════════════════════════════════════════════════════════════

type (
	// NodeID 节点标识
	NodeID = message.NodeID

	// ResourceID 资源标识
	ResourceID = message.ResourceID
)

// ════════════════════════════════════════════════════════════════════════════
//                              存储
// ════════════════════════════════════════════════════════════════════════════

type (
	// KindID 数据种类标识
	KindID = dht.KindID

	// PreparedData 待存储的值
	PreparedData = dht.PreparedData

	// StoredDataSpecifier 取回或删除时的选择器
	StoredDataSpecifier = dht.StoredDataSpecifier

	// SingleSpecifier 选择单值
	SingleSpecifier = dht.SingleSpecifier

	// ArraySpecifier 按下标区间选择数组元素
	ArraySpecifier = dht.ArraySpecifier

	// ArrayRange 半开下标区间 [Start, End)
	ArrayRange = dht.ArrayRange

	// DictionarySpecifier 按键选择字典项，键为空时选择全部
	DictionarySpecifier = dht.DictionarySpecifier

	// StoreKindResponse 单个种类的存储结果
	StoreKindResponse = dht.StoreKindResponse

	// FetchKindResponse 单个种类的取回结果
	FetchKindResponse = dht.FetchKindResponse

	// StatKindResponse 单个种类的元数据
	StatKindResponse = dht.StatKindResponse

	// StoredData 存储的一条值
	StoredData = dht.StoredData

	// SingleValue 单值
	SingleValue = dht.SingleValue

	// ArrayValue 数组元素
	ArrayValue = dht.ArrayValue

	// DictionaryValue 字典项
	DictionaryValue = dht.DictionaryValue
)

// NewPreparedData 创建种类 kind 的待存储值
func NewPreparedData(kind KindID) *PreparedData {
	return dht.NewPreparedData(kind)
}

// ════════════════════════════════════════════════════════════════════════════
//                              事件
// ════════════════════════════════════════════════════════════════════════════

type (
	// Subscription 事件订阅
	Subscription = eventbus.Subscription

	// SubscriptionOpt 订阅选项
	SubscriptionOpt = eventbus.SubscriptionOpt

	// EvtNeighborConnected 邻居链路建立
	EvtNeighborConnected = eventbus.EvtNeighborConnected

	// EvtNeighborDisconnected 邻居链路断开
	EvtNeighborDisconnected = eventbus.EvtNeighborDisconnected

	// EvtNeighborCount 邻居数变化，订阅时回放最新值
	EvtNeighborCount = eventbus.EvtNeighborCount
)

// BufSize 设置订阅缓冲区大小
func BufSize(n int) SubscriptionOpt {
	return eventbus.BufSize(n)
}
