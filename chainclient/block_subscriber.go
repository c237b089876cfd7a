package chainclient

import (
	"sync"
	"time"

	"miner-node/logging"

	"github.com/gorilla/websocket"
)

const maxReconnectBackoff = 30 * time.Second

// HeightSink receives block heights observed on the chain's websocket feed.
type HeightSink interface {
	UpdateHeight(height int64)
}

// BlockEvent is one message on the new-block feed.
type BlockEvent struct {
	Type   string `json:"type"`
	Height int64  `json:"height"`
}

// BlockSubscriber follows the chain's new-block websocket feed and pushes
// heights into the sink. It reconnects with capped exponential backoff and
// keeps running until Close.
type BlockSubscriber struct {
	wsUrl string
	sink  HeightSink

	mu   sync.Mutex
	conn *websocket.Conn

	stop chan struct{}
	done chan struct{}
}

func NewBlockSubscriber(wsUrl string, sink HeightSink) *BlockSubscriber {
	s := &BlockSubscriber{
		wsUrl: wsUrl,
		sink:  sink,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *BlockSubscriber) run() {
	defer close(s.done)

	backoff := time.Second
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(s.wsUrl, nil)
		if err != nil {
			logging.Warn("Block feed dial failed", logging.Chain,
				"url", s.wsUrl, "retryIn", backoff.String(), "error", err)
			select {
			case <-s.stop:
				return
			case <-time.After(backoff):
			}
			if backoff < maxReconnectBackoff {
				backoff *= 2
			}
			continue
		}

		backoff = time.Second
		s.setConn(conn)
		logging.Info("Subscribed to block feed", logging.Chain, "url", s.wsUrl)

		s.readLoop(conn)

		s.setConn(nil)
		conn.Close()
	}
}

func (s *BlockSubscriber) readLoop(conn *websocket.Conn) {
	for {
		var event BlockEvent
		if err := conn.ReadJSON(&event); err != nil {
			select {
			case <-s.stop:
			default:
				logging.Warn("Block feed read failed, reconnecting", logging.Chain, "error", err)
			}
			return
		}

		if event.Type == "new_block" {
			s.sink.UpdateHeight(event.Height)
		}
	}
}

func (s *BlockSubscriber) setConn(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
}

// Close stops the subscriber and waits for the read loop to exit.
func (s *BlockSubscriber) Close() {
	close(s.stop)

	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()

	<-s.done
}
