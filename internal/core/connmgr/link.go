package connmgr

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-reload/pkg/codec"
	"github.com/dep2p/go-reload/pkg/message"
)

// frameHeaderLen 帧长度前缀字节数
const frameHeaderLen = 4

// writeFrame 写入一帧：length(4) + frame
func writeFrame(w io.Writer, frame []byte) error {
	var hdr [frameHeaderLen]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(frame)))
	bufs := net.Buffers{hdr[:], frame}
	_, err := bufs.WriteTo(w)
	return err
}

// readFrame 读取一帧
//
// 超过 max 的帧内容被读出丢弃并返回 ErrFrameTooLarge，流保持对齐。
func readFrame(r io.Reader, max int) ([]byte, error) {
	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if int64(n) > int64(max) {
		if _, err := io.CopyN(io.Discard, r, int64(n)); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, max)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// hello 握手帧：overlayHash(4) + version(1) + U8 节点标识
type hello struct {
	OverlayHash uint32
	Version     uint8
	NodeID      message.NodeID
}

func (h hello) marshal() ([]byte, error) {
	return codec.Marshal(codec.DefaultContext(), func(enc *codec.Encoder) error {
		enc.WriteUint32(h.OverlayHash)
		enc.WriteUint8(h.Version)
		return enc.WriteOpaque(codec.U8, h.NodeID)
	})
}

func unmarshalHello(b []byte) (hello, error) {
	var h hello
	err := codec.Unmarshal(codec.DefaultContext(), b, func(dec *codec.Decoder) error {
		var err error
		if h.OverlayHash, err = dec.ReadUint32(); err != nil {
			return err
		}
		if h.Version, err = dec.ReadUint8(); err != nil {
			return err
		}
		id, err := dec.ReadOpaque(codec.U8)
		if err != nil {
			return err
		}
		h.NodeID = append(message.NodeID(nil), id...)
		return nil
	})
	return h, err
}

// link 到一个邻居的分帧链路
type link struct {
	id       message.NodeID
	conn     net.Conn
	r        *bufio.Reader
	outbound bool

	writeTimeout time.Duration
	wmu          sync.Mutex

	leaving   atomic.Bool
	closeOnce sync.Once
}

func newLink(conn net.Conn, r *bufio.Reader, id message.NodeID, outbound bool, writeTimeout time.Duration) *link {
	return &link{id: id, conn: conn, r: r, outbound: outbound, writeTimeout: writeTimeout}
}

// send 写入一帧，并发调用按顺序写出
func (l *link) send(frame []byte) error {
	l.wmu.Lock()
	defer l.wmu.Unlock()
	if l.writeTimeout > 0 {
		if err := l.conn.SetWriteDeadline(time.Now().Add(l.writeTimeout)); err != nil {
			return err
		}
	}
	return writeFrame(l.conn, frame)
}

func (l *link) close() {
	l.closeOnce.Do(func() { _ = l.conn.Close() })
}

// handshake 交换握手帧并校验对端
//
// 出站方先写后读，入站方先读后写。
func handshake(conn net.Conn, r *bufio.Reader, local hello, cfg Config, outbound bool) (hello, error) {
	if err := conn.SetDeadline(time.Now().Add(cfg.DialTimeout)); err != nil {
		return hello{}, err
	}
	defer func() { _ = conn.SetDeadline(time.Time{}) }()

	out, err := local.marshal()
	if err != nil {
		return hello{}, err
	}
	if outbound {
		if err := writeFrame(conn, out); err != nil {
			return hello{}, fmt.Errorf("%w: %v", ErrHandshake, err)
		}
	}
	in, err := readFrame(r, 1+4+1+255)
	if err != nil {
		return hello{}, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	if !outbound {
		if err := writeFrame(conn, out); err != nil {
			return hello{}, fmt.Errorf("%w: %v", ErrHandshake, err)
		}
	}

	peer, err := unmarshalHello(in)
	if err != nil {
		return hello{}, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	switch {
	case peer.OverlayHash != local.OverlayHash:
		return hello{}, fmt.Errorf("%w: overlay hash %08x", ErrHandshake, peer.OverlayHash)
	case peer.Version != local.Version:
		return hello{}, fmt.Errorf("%w: version %d", ErrHandshake, peer.Version)
	case len(peer.NodeID) != cfg.NodeIDLength:
		return hello{}, fmt.Errorf("%w: node id of %d bytes", ErrHandshake, len(peer.NodeID))
	case peer.NodeID.Equal(local.NodeID):
		return hello{}, fmt.Errorf("%w: connected to self", ErrHandshake)
	}
	return peer, nil
}
