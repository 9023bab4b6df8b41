package webrtc

import (
	"context"
	"fmt"

	"telecare-session-service/internal/session"

	pion "github.com/pion/webrtc/v4"
)

// Stream is the local capture stream: one audio and one video track.
type Stream struct {
	tracks []*pion.TrackLocalStaticSample
}

func (s *Stream) Close() error { return nil }

// SampleSource produces a stream backed by static sample tracks. A headless
// client has no camera; the tracks exist so the media call negotiates the
// same shape as a browser peer.
type SampleSource struct{}

func NewSampleSource() *SampleSource { return &SampleSource{} }

func (s *SampleSource) Acquire(_ context.Context) (session.MediaStream, error) {
	video, err := pion.NewTrackLocalStaticSample(
		pion.RTPCodecCapability{MimeType: pion.MimeTypeVP8, ClockRate: 90000},
		"video", "telecare",
	)
	if err != nil {
		return nil, fmt.Errorf("create video track: %w", err)
	}
	audio, err := pion.NewTrackLocalStaticSample(
		pion.RTPCodecCapability{MimeType: pion.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", "telecare",
	)
	if err != nil {
		return nil, fmt.Errorf("create audio track: %w", err)
	}
	return &Stream{tracks: []*pion.TrackLocalStaticSample{video, audio}}, nil
}
