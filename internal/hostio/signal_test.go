package hostio

import (
	"bytes"
	"testing"
)

func TestEncodeEndTaskMatchesWireBytes(t *testing.T) {
	got := EncodeEndTask(EndTask{ProcessID: 4242, EventType: 0, CtrlFlags: CtrlCFlag})

	wantBytes := []byte{
		0x07,
		0x10, 0x00, 0x00, 0x00,
		0x92, 0x10, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00,
	}
	if !bytes.Equal(got, wantBytes) {
		t.Fatalf("EncodeEndTask = % x, want % x", got, wantBytes)
	}
	if len(got) != 17 {
		t.Fatalf("len = %d, want 17", len(got))
	}
}

type recordingTarget struct {
	notifyApp      []uint32
	setForeground  []SetForeground
	endTask        []EndTask
	disconnections int
}

func (r *recordingTarget) NotifyApp(pid uint32) { r.notifyApp = append(r.notifyApp, pid) }
func (r *recordingTarget) SetForeground(handle uint32, fg bool) {
	r.setForeground = append(r.setForeground, SetForeground{ProcessHandle: handle, IsForeground: fg})
}
func (r *recordingTarget) EndTask(pid, eventType, ctrlFlags uint32) {
	r.endTask = append(r.endTask, EndTask{ProcessID: pid, EventType: eventType, CtrlFlags: ctrlFlags})
}
func (r *recordingTarget) SignalPipeDisconnected() { r.disconnections++ }

func TestReadSignalsEndTaskThenEOF(t *testing.T) {
	wire := EncodeEndTask(EndTask{ProcessID: 4242, EventType: 0, CtrlFlags: 1})
	tgt := &recordingTarget{}
	if err := ReadSignals(bytes.NewReader(wire), tgt); err != nil {
		t.Fatalf("ReadSignals: %v", err)
	}
	if len(tgt.endTask) != 1 || tgt.endTask[0] != (EndTask{ProcessID: 4242, EventType: 0, CtrlFlags: 1}) {
		t.Fatalf("end task callbacks = %+v", tgt.endTask)
	}
	if tgt.disconnections != 1 {
		t.Fatalf("disconnections = %d, want 1", tgt.disconnections)
	}
}

func TestReadSignalsUnknownCodeIsProtocolViolation(t *testing.T) {
	wire := []byte{0xEE, 0x08, 0x00, 0x00, 0x00}
	tgt := &recordingTarget{}
	err := ReadSignals(bytes.NewReader(wire), tgt)
	if err == nil {
		t.Fatal("expected protocol violation error")
	}
	if tgt.disconnections != 1 {
		t.Fatalf("disconnections = %d, want 1 (notified even on violation)", tgt.disconnections)
	}
}

func TestReadSignalsSizeTooSmallIsProtocolViolation(t *testing.T) {
	wire := []byte{byte(SignalEndTask), 0x04, 0x00, 0x00, 0x00}
	tgt := &recordingTarget{}
	if err := ReadSignals(bytes.NewReader(wire), tgt); err == nil {
		t.Fatal("expected protocol violation error")
	}
}

func TestReadSignalsDiscardsExtensionBytes(t *testing.T) {
	base := EncodeNotifyApp(NotifyApp{ProcessID: 7})
	// Declare sizeInBytes larger than known (8), append 2 extra bytes.
	base[1] = 10
	wire := append(base, 0xAA, 0xBB)
	tgt := &recordingTarget{}
	if err := ReadSignals(bytes.NewReader(wire), tgt); err != nil {
		t.Fatalf("ReadSignals: %v", err)
	}
	if len(tgt.notifyApp) != 1 || tgt.notifyApp[0] != 7 {
		t.Fatalf("notify app callbacks = %+v", tgt.notifyApp)
	}
}

func TestSignalSenderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	s := NewSignalSender(&buf)
	if err := s.EndTask(99, 0, CtrlBreakFlag); err != nil {
		t.Fatalf("EndTask: %v", err)
	}
	tgt := &recordingTarget{}
	if err := ReadSignals(&buf, tgt); err != nil {
		t.Fatalf("ReadSignals: %v", err)
	}
	if len(tgt.endTask) != 1 || tgt.endTask[0].CtrlFlags != CtrlBreakFlag {
		t.Fatalf("end task = %+v", tgt.endTask)
	}
}
