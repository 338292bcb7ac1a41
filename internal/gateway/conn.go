package gateway

import (
	"context"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// wsConn wraps one accepted socket with a single writer goroutine. All
// outbound traffic (direct replies and hub fan-out alike) funnels through
// the out channel so only one goroutine ever writes to the socket.
type wsConn struct {
	ws  *websocket.Conn
	out chan any

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{
		ws:     ws,
		out:    make(chan any, 64),
		stopCh: make(chan struct{}),
	}
}

// send enqueues a message without blocking. A full buffer means the client
// is not draining; the event is dropped and the next snapshot recovers.
func (c *wsConn) send(msg any) {
	select {
	case c.out <- msg:
	case <-c.stopCh:
	default:
	}
}

// run starts the writer loop and a forwarder that feeds hub events into the
// same out channel.
func (c *wsConn) run(ctx context.Context, sub *Subscription) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case msg, ok := <-c.out:
				if !ok {
					return
				}
				if err := wsjson.Write(ctx, c.ws, msg); err != nil {
					c.stop()
					return
				}
			case <-c.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	if sub != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for {
				select {
				case msg, ok := <-sub.C():
					if !ok {
						return
					}
					c.send(msg)
				case <-c.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}

func (c *wsConn) stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// close stops the loops and waits them out.
func (c *wsConn) close() {
	c.stop()
	c.wg.Wait()
}
