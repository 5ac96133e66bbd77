// Package upload implements the contributor's file ingestion: direct small
// uploads, chunked large uploads and media item creation.
package upload

import (
	"errors"
	"fmt"

	"github.com/FairForge/heritageload/internal/archive"
)

var (
	// ErrIllegalTransition is returned when a transfer is driven out of order.
	ErrIllegalTransition = errors.New("upload: illegal transition")

	// ErrChunkFailed wraps the failure of a chunk; no later chunk is sent.
	ErrChunkFailed = errors.New("upload: chunk failed")

	// ErrNoCategory aborts creation when no category is available.
	ErrNoCategory = errors.New("upload: no category available")
)

// State is the phase of a single file transfer.
type State int

const (
	Idle State = iota
	SmallUploadInFlight
	LargeInitiated
	ChunkUploading
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SmallUploadInFlight:
		return "small_upload_in_flight"
	case LargeInitiated:
		return "large_initiated"
	case ChunkUploading:
		return "chunk_uploading"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var transitions = map[State][]State{
	Idle:                {SmallUploadInFlight, LargeInitiated, Failed},
	SmallUploadInFlight: {Completed, Failed},
	LargeInitiated:      {ChunkUploading, Failed},
	ChunkUploading:      {ChunkUploading, Completed, Failed},
}

// Transfer tracks one file through the state machine. A transfer is never
// reused once it reaches Completed or Failed.
type Transfer struct {
	state   State
	session *archive.UploadSession
	chunks  []int
	file    *archive.UploadedFile
}

// State returns the current phase.
func (t *Transfer) State() State { return t.state }

// Session returns the chunked upload session, if one was opened.
func (t *Transfer) Session() *archive.UploadSession { return t.session }

// ChunksUploaded lists the acknowledged chunk numbers in order.
func (t *Transfer) ChunksUploaded() []int { return append([]int(nil), t.chunks...) }

// File is the resulting reference, set only in Completed.
func (t *Transfer) File() *archive.UploadedFile { return t.file }

func (t *Transfer) move(to State) error {
	for _, s := range transitions[t.state] {
		if s == to {
			t.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, t.state, to)
}

// StartSmall marks a direct upload as in flight.
func (t *Transfer) StartSmall() error { return t.move(SmallUploadInFlight) }

// Initiated records the opened chunked session.
func (t *Transfer) Initiated(s *archive.UploadSession) error {
	if err := t.move(LargeInitiated); err != nil {
		return err
	}
	t.session = s
	return nil
}

// ChunkDone records an acknowledged chunk. Chunks must arrive as 0, 1, 2...
func (t *Transfer) ChunkDone(n int) error {
	if n != len(t.chunks) {
		return fmt.Errorf("%w: chunk %d after %d chunks", ErrIllegalTransition, n, len(t.chunks))
	}
	if err := t.move(ChunkUploading); err != nil {
		return err
	}
	t.chunks = append(t.chunks, n)
	return nil
}

// Complete stores the final file. A chunked transfer must have all want
// chunks acknowledged first; pass 0 for a direct upload.
func (t *Transfer) Complete(f *archive.UploadedFile, want int) error {
	if t.state == ChunkUploading && len(t.chunks) != want {
		return fmt.Errorf("%w: complete after %d of %d chunks", ErrIllegalTransition, len(t.chunks), want)
	}
	if err := t.move(Completed); err != nil {
		return err
	}
	t.file = f
	return nil
}

// Fail abandons the transfer.
func (t *Transfer) Fail() error { return t.move(Failed) }
