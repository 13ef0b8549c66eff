package websocket

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"unicode/utf8"
)

// OpCode represents WebSocket operation codes
type OpCode byte

const (
	OpContinuation OpCode = 0x0
	OpText         OpCode = 0x1
	OpBinary       OpCode = 0x2
	OpClose        OpCode = 0x8
	OpPing         OpCode = 0x9
	OpPong         OpCode = 0xA
)

func (o OpCode) String() string {
	switch o {
	case OpContinuation:
		return "continuation"
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	}
	return fmt.Sprintf("opcode(%d)", byte(o))
}

// IsControl reports whether o is a close, ping or pong
func (o OpCode) IsControl() bool { return o&0x8 != 0 }

// Close status codes
const (
	CloseNormal          uint16 = 1000
	CloseGoingAway       uint16 = 1001
	CloseProtocolError   uint16 = 1002
	CloseInvalidPayload  uint16 = 1007
	CloseMessageTooLarge uint16 = 1009
)

var (
	ErrClosed          = errors.New("websocket: connection closed")
	ErrProtocol        = errors.New("websocket: protocol error")
	ErrMessageTooLarge = errors.New("websocket: message too large")
)

// DefaultMaxMessageSize bounds a reassembled message
const DefaultMaxMessageSize = 1 << 20

// Frame is a single WebSocket frame
type Frame struct {
	Fin     bool
	OpCode  OpCode
	Masked  bool
	Mask    [4]byte
	Payload []byte
}

// Message is a complete, reassembled data message
type Message struct {
	OpCode  OpCode
	Payload []byte
}

// Text returns the payload as a string
func (m *Message) Text() string { return string(m.Payload) }

// Conn is the server side of a WebSocket connection. Reads must come from
// one goroutine; writes may come from several.
type Conn struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer

	writeMu sync.Mutex
	closed  atomic.Bool

	maxMessageSize int
}

// NewConn wraps a connection whose upgrade handshake has been written
func NewConn(conn net.Conn) *Conn {
	return &Conn{
		conn:           conn,
		reader:         bufio.NewReader(conn),
		writer:         bufio.NewWriter(conn),
		maxMessageSize: DefaultMaxMessageSize,
	}
}

func (c *Conn) SetMaxMessageSize(size int) {
	c.maxMessageSize = size
}

// RemoteAddr returns the peer address
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// ReadMessage returns the next text or binary message. Pings are answered
// and pongs skipped. A close frame is echoed and io.EOF returned.
func (c *Conn) ReadMessage() (*Message, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	var msg *Message
	for {
		frame, err := c.ReadFrame()
		if err != nil {
			if errors.Is(err, ErrProtocol) {
				c.closeWith(CloseProtocolError)
			}
			return nil, err
		}

		switch frame.OpCode {
		case OpText, OpBinary:
			if msg != nil {
				c.closeWith(CloseProtocolError)
				return nil, fmt.Errorf("%w: new message inside fragmented message", ErrProtocol)
			}
			msg = &Message{OpCode: frame.OpCode, Payload: frame.Payload}

		case OpContinuation:
			if msg == nil {
				c.closeWith(CloseProtocolError)
				return nil, fmt.Errorf("%w: continuation without start", ErrProtocol)
			}
			if len(msg.Payload)+len(frame.Payload) > c.maxMessageSize {
				c.closeWith(CloseMessageTooLarge)
				return nil, ErrMessageTooLarge
			}
			msg.Payload = append(msg.Payload, frame.Payload...)

		case OpPing:
			if err := c.WriteFrame(&Frame{Fin: true, OpCode: OpPong, Payload: frame.Payload}); err != nil {
				return nil, err
			}
			continue

		case OpPong:
			continue

		case OpClose:
			code := CloseNormal
			if len(frame.Payload) >= 2 {
				code = binary.BigEndian.Uint16(frame.Payload)
			}
			c.closeWith(code)
			return nil, io.EOF

		default:
			c.closeWith(CloseProtocolError)
			return nil, fmt.Errorf("%w: unknown opcode %d", ErrProtocol, frame.OpCode)
		}

		if frame.Fin {
			if msg.OpCode == OpText && !utf8.Valid(msg.Payload) {
				c.closeWith(CloseInvalidPayload)
				return nil, fmt.Errorf("%w: text message is not utf-8", ErrProtocol)
			}
			return msg, nil
		}
	}
}

// ReadFrame reads and unmasks one frame. Client frames must be masked.
func (c *Conn) ReadFrame() (*Frame, error) {
	var header [2]byte
	if _, err := io.ReadFull(c.reader, header[:]); err != nil {
		return nil, err
	}

	frame := &Frame{
		Fin:    header[0]&0x80 != 0,
		OpCode: OpCode(header[0] & 0x0F),
		Masked: header[1]&0x80 != 0,
	}
	if header[0]&0x70 != 0 {
		return nil, fmt.Errorf("%w: reserved bits set", ErrProtocol)
	}
	if !frame.Masked {
		return nil, fmt.Errorf("%w: unmasked client frame", ErrProtocol)
	}

	length := uint64(header[1] & 0x7F)
	switch length {
	case 126:
		var ext [2]byte
		if _, err := io.ReadFull(c.reader, ext[:]); err != nil {
			return nil, err
		}
		length = uint64(binary.BigEndian.Uint16(ext[:]))
	case 127:
		var ext [8]byte
		if _, err := io.ReadFull(c.reader, ext[:]); err != nil {
			return nil, err
		}
		length = binary.BigEndian.Uint64(ext[:])
	}

	if frame.OpCode.IsControl() && (length > 125 || !frame.Fin) {
		return nil, fmt.Errorf("%w: invalid control frame", ErrProtocol)
	}
	if length > uint64(c.maxMessageSize) {
		c.closeWith(CloseMessageTooLarge)
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, c.maxMessageSize)
	}

	if _, err := io.ReadFull(c.reader, frame.Mask[:]); err != nil {
		return nil, err
	}

	if length > 0 {
		frame.Payload = make([]byte, length)
		if _, err := io.ReadFull(c.reader, frame.Payload); err != nil {
			return nil, err
		}
		maskBytes(frame.Mask, frame.Payload)
	}

	return frame, nil
}

func maskBytes(key [4]byte, b []byte) {
	for i := range b {
		b[i] ^= key[i%4]
	}
}

func (c *Conn) WriteMessage(opcode OpCode, payload []byte) error {
	return c.WriteFrame(&Frame{
		Fin:     true,
		OpCode:  opcode,
		Payload: payload,
	})
}

func (c *Conn) WriteText(text string) error {
	return c.WriteMessage(OpText, []byte(text))
}

func (c *Conn) WriteBinary(data []byte) error {
	return c.WriteMessage(OpBinary, data)
}

// WriteFrame writes an unmasked server frame
func (c *Conn) WriteFrame(frame *Frame) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.writeFrame(frame)
}

func (c *Conn) writeFrame(frame *Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	first := byte(frame.OpCode)
	if frame.Fin {
		first |= 0x80
	}

	var header [10]byte
	header[0] = first
	n := 2
	switch size := len(frame.Payload); {
	case size < 126:
		header[1] = byte(size)
	case size <= 0xFFFF:
		header[1] = 126
		binary.BigEndian.PutUint16(header[2:], uint16(size))
		n = 4
	default:
		header[1] = 127
		binary.BigEndian.PutUint64(header[2:], uint64(size))
		n = 10
	}

	if _, err := c.writer.Write(header[:n]); err != nil {
		return err
	}
	if _, err := c.writer.Write(frame.Payload); err != nil {
		return err
	}
	return c.writer.Flush()
}

func (c *Conn) Ping(payload []byte) error {
	return c.WriteFrame(&Frame{Fin: true, OpCode: OpPing, Payload: payload})
}

// Close sends a normal close frame and closes the connection
func (c *Conn) Close() error {
	return c.closeWith(CloseNormal)
}

func (c *Conn) closeWith(code uint16) error {
	if c.closed.Swap(true) {
		return nil
	}
	var payload [2]byte
	binary.BigEndian.PutUint16(payload[:], code)
	_ = c.writeFrame(&Frame{Fin: true, OpCode: OpClose, Payload: payload[:]})
	return c.conn.Close()
}

func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}
