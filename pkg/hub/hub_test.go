package hub

import (
	"testing"
	"time"
)

func TestBroadcastWithoutClients(t *testing.T) {
	h := New("test")
	go h.Run()
	defer h.Stop()

	if got := h.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d, want 0", got)
	}

	// No clients connected; the message is consumed and dropped.
	if err := h.BroadcastJSON(map[string]string{"state": "ready"}); err != nil {
		t.Errorf("BroadcastJSON() = %v", err)
	}
}

func TestBroadcastJSONRejectsUnencodable(t *testing.T) {
	h := New("test")
	go h.Run()
	defer h.Stop()

	if err := h.BroadcastJSON(make(chan int)); err == nil {
		t.Error("BroadcastJSON(chan) = nil, want encode error")
	}
}

func TestSlowClientDropDoesNotRaceClientCount(t *testing.T) {
	h := New("test")
	go h.Run()
	defer h.Stop()

	// A client with no buffer and no reader is dropped on the first
	// broadcast that cannot be delivered.
	slow := &Client{hub: h, send: make(chan []byte)}
	h.register <- slow

	// Hammer the read path while the drop happens; under -race this
	// fails if the drop mutates the client map without the write lock.
	stop := make(chan struct{})
	raced := make(chan struct{})
	go func() {
		defer close(raced)
		for {
			select {
			case <-stop:
				return
			default:
				h.ClientCount()
			}
		}
	}()

	if err := h.BroadcastJSON(map[string]string{"state": "moving"}); err != nil {
		t.Fatalf("BroadcastJSON() = %v", err)
	}

	deadline := time.After(time.Second)
	for h.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("slow client never dropped")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	close(stop)
	<-raced

	// The dropped client's channel was closed.
	select {
	case _, ok := <-slow.send:
		if ok {
			t.Error("dropped client's send channel still open")
		}
	default:
		t.Error("dropped client's send channel not closed")
	}
}

func TestNewClientAfterStopDoesNotBlock(t *testing.T) {
	h := New("test")
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()

	h.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not exit after Stop()")
	}

	// A late upgrade must return immediately with its send channel
	// closed, not park forever on the register channel.
	returned := make(chan *Client, 1)
	go func() {
		returned <- NewClient(h, nil)
	}()

	select {
	case client := <-returned:
		select {
		case _, ok := <-client.send:
			if ok {
				t.Error("late client's send channel still open")
			}
		default:
			t.Error("late client's send channel not closed")
		}
	case <-time.After(time.Second):
		t.Fatal("NewClient blocked on a stopped hub")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	h := New("test")
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()

	h.Stop()
	h.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not exit after Stop()")
	}
}
