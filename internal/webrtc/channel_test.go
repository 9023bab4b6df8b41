package webrtc

import (
	"errors"
	"testing"

	"telecare-session-service/internal/domain"
)

func TestSendBeforeOpenIsRejected(t *testing.T) {
	ch := newChannel(nil)
	if err := ch.Send("start-test-MMSE"); !errors.Is(err, domain.ErrChannelNotOpen) {
		t.Fatalf("err = %v, want ErrChannelNotOpen", err)
	}
}

func TestSendAfterCloseIsRejected(t *testing.T) {
	ch := newChannel(nil)
	ch.markOpen()
	ch.markClosed()
	if err := ch.Send("next-question:1"); !errors.Is(err, domain.ErrChannelClosed) {
		t.Fatalf("err = %v, want ErrChannelClosed", err)
	}
}

func TestIsOpenTracksLifecycle(t *testing.T) {
	ch := newChannel(nil)
	if ch.isOpen() {
		t.Fatal("open before open event")
	}
	ch.markOpen()
	if !ch.isOpen() {
		t.Fatal("not open after open event")
	}
	ch.markClosed()
	if ch.isOpen() {
		t.Fatal("still open after close")
	}
}
