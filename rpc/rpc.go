// Package rpc publishes the beat position of a player to a remote visualizer
// over net/rpc. Updates are best effort: when either side falls behind, the
// newest update is dropped rather than blocking the player.
package rpc

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/rpc"
	"sync"
)

type (
	BeatUpdate struct {
		Beat int
		// Time is the audio clock of the player when the beat was reached.
		Time float64
	}

	SyncServer struct {
		mu      sync.Mutex
		channel chan BeatUpdate
		closed  bool
	}

	Receiver struct {
		C        <-chan BeatUpdate
		listener net.Listener
	}

	Sender struct {
		client    *rpc.Client
		channel   chan BeatUpdate
		done      chan struct{}
		closeOnce sync.Once
	}
)

func (s *SyncServer) Sync(update BeatUpdate, reply *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	select {
	case s.channel <- update:
	default:
	}
	return nil
}

func (s *SyncServer) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.channel)
	}
}

// Listen starts serving beat updates on addr, e.g. ":31337". Received updates
// are delivered on the C channel of the returned receiver, which is closed
// once the receiver stops serving.
func Listen(addr string, logger *log.Logger) (*Receiver, error) {
	if logger == nil {
		logger = log.Default()
	}
	c := make(chan BeatUpdate, 16)
	syncServer := &SyncServer{channel: c}
	server := rpc.NewServer()
	if err := server.Register(syncServer); err != nil {
		return nil, fmt.Errorf("rpc register failed: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, server)
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("net.listen failed: %w", err)
	}
	go func() {
		defer syncServer.close()
		if err := http.Serve(l, mux); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Printf("beat sync receiver on %v: %v", l.Addr(), err)
		}
	}()
	return &Receiver{C: c, listener: l}, nil
}

// Addr returns the address the receiver listens on.
func (r *Receiver) Addr() string {
	return r.listener.Addr().String()
}

// Close stops accepting connections. C is closed shortly after, when the
// server goroutine has returned; buffered updates can still be drained.
func (r *Receiver) Close() error {
	return r.listener.Close()
}

// Dial connects to a receiver. Failed calls are logged and end the sender.
func Dial(addr string, logger *log.Logger) (*Sender, error) {
	if logger == nil {
		logger = log.Default()
	}
	client, err := rpc.DialHTTP("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("rpc.DialHTTP failed: %w", err)
	}
	s := &Sender{client: client, channel: make(chan BeatUpdate, 16), done: make(chan struct{})}
	go func() {
		defer close(s.done)
		for update := range s.channel {
			var reply int
			if err := client.Call("SyncServer.Sync", update, &reply); err != nil {
				if !errors.Is(err, rpc.ErrShutdown) {
					logger.Printf("beat sync to %v: %v", addr, err)
				}
				return
			}
		}
	}()
	return s, nil
}

// Send queues an update without blocking. It reports false if the update was
// dropped.
func (s *Sender) Send(update BeatUpdate) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.channel <- update:
		return true
	default:
		return false
	}
}

// Close flushes the queued updates and disconnects. Send must not be called
// concurrently with Close.
func (s *Sender) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.channel)
		<-s.done
		err = s.client.Close()
	})
	return err
}
