package routing

import (
	"crypto/rand"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dep2p/go-reload/pkg/message"
)

// OpaqueIDLength 不透明标识字节长度
const OpaqueIDLength = 8

type compressedPath struct {
	path    message.DestinationList
	expires time.Time
}

// PathCompressor 目的地列表压缩表
//
// 容量有上限，条目在 expiry 后失效。同一列表在有效期内复用同一标识。
type PathCompressor struct {
	capacity int
	expiry   time.Duration
	clock    clock.Clock

	table   atomic.Pointer[expirable.LRU[string, compressedPath]]
	reverse sync.Map // DestinationList.Key() -> token
}

// NewPathCompressor 创建压缩表，Start 之后可用
func NewPathCompressor(capacity int, expiry time.Duration, clk clock.Clock) *PathCompressor {
	if clk == nil {
		clk = clock.New()
	}
	return &PathCompressor{capacity: capacity, expiry: expiry, clock: clk}
}

// Start 创建底层表
func (c *PathCompressor) Start() {
	lru := expirable.NewLRU[string, compressedPath](c.capacity, c.onEvict, c.expiry)
	if !c.table.CompareAndSwap(nil, lru) {
		lru.Purge()
	}
}

// Close 清空并关闭表，之前发出的标识全部失效
func (c *PathCompressor) Close() {
	if lru := c.table.Swap(nil); lru != nil {
		lru.Purge()
	}
}

func (c *PathCompressor) onEvict(token string, e compressedPath) {
	c.reverse.CompareAndDelete(e.path.Key(), token)
}

// Compress 返回代表 path 的不透明标识
func (c *PathCompressor) Compress(path message.DestinationList) (message.OpaqueID, error) {
	if len(path) == 0 {
		return nil, ErrEmptyDestination
	}
	lru := c.table.Load()
	if lru == nil {
		return nil, ErrCompressorClosed
	}

	key := path.Key()
	now := c.clock.Now()
	if v, ok := c.reverse.Load(key); ok {
		token := v.(string)
		if e, ok := lru.Get(token); ok && now.Before(e.expires) {
			return message.OpaqueID(token), nil
		}
	}

	var buf [OpaqueIDLength]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("routing: generate opaque id: %w", err)
	}
	token := string(buf[:])
	lru.Add(token, compressedPath{path: path.Clone(), expires: now.Add(c.expiry)})
	c.reverse.Store(key, token)
	return message.OpaqueID(buf[:]), nil
}

// Decompress 返回标识对应的目的地列表
func (c *PathCompressor) Decompress(id message.OpaqueID) (message.DestinationList, error) {
	lru := c.table.Load()
	if lru == nil {
		return nil, ErrCompressorClosed
	}
	e, ok := lru.Get(string(id))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOpaqueID, id)
	}
	if !c.clock.Now().Before(e.expires) {
		lru.Remove(string(id))
		return nil, fmt.Errorf("%w: %s expired", ErrUnknownOpaqueID, id)
	}
	return e.path.Clone(), nil
}

// Len 当前条目数
func (c *PathCompressor) Len() int {
	if lru := c.table.Load(); lru != nil {
		return lru.Len()
	}
	return 0
}
