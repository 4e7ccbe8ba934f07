package engine

// Engine 键值存储引擎
//
// 所有方法可并发调用。返回的切片归调用方所有。
type Engine interface {
	// Get 读取键，不存在时返回 ErrNotFound
	Get(key []byte) ([]byte, error)

	// Put 写入键值
	Put(key, value []byte) error

	// Delete 删除键
	Delete(key []byte) error

	// Has 检查键是否存在
	Has(key []byte) (bool, error)

	// Scan 按字典序遍历前缀下的键值，fn 返回 false 时停止
	Scan(prefix []byte, fn func(key, value []byte) bool) error

	// Update 在读写事务中执行 fn，fn 返回错误时回滚
	Update(fn func(txn Txn) error) error

	// View 在只读事务中执行 fn
	View(fn func(txn Txn) error) error

	// NewBatch 创建批量写入
	NewBatch() Batch

	// Start 启动后台任务
	Start() error

	// Sync 将数据刷到磁盘
	Sync() error

	// Close 关闭引擎
	Close() error

	// Stats 返回统计信息
	Stats() Stats
}

// Txn 事务视图
type Txn interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Scan(prefix []byte, fn func(key, value []byte) bool) error
}

// Batch 批量写入，Flush 之前不可见
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Flush() error
	Cancel()
	Size() int
}

// Stats 引擎统计
type Stats struct {
	LSMSize    int64 `json:"lsm_size"`
	VlogSize   int64 `json:"vlog_size"`
	NumReads   int64 `json:"num_reads"`
	NumWrites  int64 `json:"num_writes"`
	NumDeletes int64 `json:"num_deletes"`
	NumGC      int64 `json:"num_gc"`
}
