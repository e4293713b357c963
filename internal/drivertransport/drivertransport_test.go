package drivertransport

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/oconsole/condrvhost/internal/iopacket"
)

func TestNewConnRoundTripsPacketAndCompletion(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	driver := NewConn(server)
	defer driver.Close()

	input := []byte{1, 2, 3}
	writeErr := make(chan error, 1)
	go func() {
		writeErr <- WritePacket(client, iopacket.Descriptor{
			Identifier: 7,
			Function:   1,
			InputSize:  uint32(len(input)),
		}, input, nil)
	}()

	packet, err := driver.ReadIo(nil)
	if err != nil {
		t.Fatalf("ReadIo: %v", err)
	}
	if err := <-writeErr; err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if packet.Descriptor.Identifier != 7 {
		t.Errorf("Identifier = %d, want 7", packet.Descriptor.Identifier)
	}
	if string(packet.Input) != string(input) {
		t.Errorf("Input = %v, want %v", packet.Input, input)
	}

	readDone := make(chan struct{})
	var hdr [20]byte
	go func() {
		defer close(readDone)
		net.Conn(client).SetReadDeadline(time.Now().Add(2 * time.Second))
		client.Read(hdr[:])
	}()

	if err := driver.CompleteIo(7, iopacket.Completion{Status: iopacket.StatusSuccess}); err != nil {
		t.Fatalf("CompleteIo: %v", err)
	}
	<-readDone
}

func TestNewConnCloseIsIdempotentOverSingleUnderlyingConn(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	driver := NewConn(server)
	if err := driver.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := driver.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestCancelInterruptsBlockedReadIo(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	driver := NewConn(server)
	defer driver.Close()

	result := make(chan struct {
		packet iopacket.Packet
		err    error
	}, 1)
	go func() {
		packet, err := driver.ReadIo(nil)
		result <- struct {
			packet iopacket.Packet
			err    error
		}{packet, err}
	}()

	// Give ReadIo a moment to actually park inside the blocking read before
	// cancelling it; a Cancel that races ahead of that would test nothing.
	time.Sleep(50 * time.Millisecond)
	driver.Cancel()

	select {
	case r := <-result:
		if r.err != ErrOperationAborted {
			t.Fatalf("ReadIo returned %v, %v; want ErrOperationAborted", r.packet, r.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Cancel did not unblock a ReadIo parked in a blocking read")
	}

	// A packet written after the cancellation must not be lost: it should
	// surface on the next ReadIo call, since the background reader keeps
	// running independently of any one cancelled caller.
	input := []byte{9, 8, 7}
	writeErr := make(chan error, 1)
	go func() {
		writeErr <- WritePacket(client, iopacket.Descriptor{Identifier: 42, InputSize: uint32(len(input))}, input, nil)
	}()

	packet, err := driver.ReadIo(nil)
	if err != nil {
		t.Fatalf("ReadIo after cancel: %v", err)
	}
	if err := <-writeErr; err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if packet.Descriptor.Identifier != 42 {
		t.Errorf("Identifier = %d, want 42", packet.Descriptor.Identifier)
	}
}

func TestCancelWithNoBlockedReadIsNoop(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	driver := NewConn(server)
	defer driver.Close()

	driver.Cancel() // must not panic or leave state that aborts the next call

	input := []byte{1}
	writeErr := make(chan error, 1)
	go func() {
		writeErr <- WritePacket(client, iopacket.Descriptor{Identifier: 5, InputSize: uint32(len(input))}, input, nil)
	}()

	packet, err := driver.ReadIo(nil)
	if err != nil {
		t.Fatalf("ReadIo: %v", err)
	}
	if err := <-writeErr; err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if packet.Descriptor.Identifier != 5 {
		t.Errorf("Identifier = %d, want 5", packet.Descriptor.Identifier)
	}
}

func TestListenAcceptRoundTrip(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "test.sock")

	ln, err := Listen(sockPath)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan Driver, 1)
	acceptErr := make(chan error, 1)
	go func() {
		driver, err := ln.Accept()
		accepted <- driver
		acceptErr <- err
	}()

	client, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	if err := <-acceptErr; err != nil {
		t.Fatalf("Accept: %v", err)
	}
	driver := <-accepted
	defer driver.Close()

	if driver == nil {
		t.Fatal("Accept returned nil driver")
	}
}
