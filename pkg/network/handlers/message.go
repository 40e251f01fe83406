// Package handlers implements the oracle's stream protocols: a request frame
// in, a response frame out.
package handlers

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/eigerco/beaconoracle/pkg/network/transport"
)

// MaxMessageSize bounds the content of a single frame.
const MaxMessageSize = 1 << 20

// Message is a frame: a little-endian uint32 size followed by the content.
type Message struct {
	Size    uint32
	Content []byte
}

type result struct {
	msg *Message
	err error
}

// WriteMessageWithContext writes content as one frame. The write is
// abandoned when ctx is done.
func WriteMessageWithContext(ctx context.Context, w io.Writer, content []byte) error {
	if len(content) > MaxMessageSize {
		return fmt.Errorf("message of %d bytes exceeds %d", len(content), MaxMessageSize)
	}
	done := make(chan error, 1)
	go func() {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(content))); err != nil {
			done <- fmt.Errorf("failed to write message size: %w", err)
			return
		}
		if _, err := w.Write(content); err != nil {
			done <- fmt.Errorf("failed to write message content: %w", err)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReadMessageWithContext reads one frame. The read is abandoned when ctx is
// done.
func ReadMessageWithContext(ctx context.Context, r io.Reader) (*Message, error) {
	done := make(chan result, 1)
	go func() {
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			done <- result{err: fmt.Errorf("failed to read message size: %w", err)}
			return
		}
		if size > MaxMessageSize {
			done <- result{err: fmt.Errorf("message of %d bytes exceeds %d", size, MaxMessageSize)}
			return
		}
		content := make([]byte, size)
		if _, err := io.ReadFull(r, content); err != nil {
			done <- result{err: fmt.Errorf("failed to read message content: %w", err)}
			return
		}
		done <- result{msg: &Message{Size: size, Content: content}}
	}()

	select {
	case res := <-done:
		return res.msg, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// exchange sends request on stream and waits for the single response frame.
func exchange(ctx context.Context, stream quic.Stream, request []byte) ([]byte, error) {
	defer stream.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetDeadline(deadline)
	} else {
		_ = stream.SetDeadline(time.Now().Add(transport.StreamTimeout))
	}
	if err := WriteMessageWithContext(ctx, stream, request); err != nil {
		return nil, err
	}
	resp, err := ReadMessageWithContext(ctx, stream)
	if err != nil {
		return nil, err
	}
	return resp.Content, nil
}

// serve reads one request frame from stream, answers it with respond and
// closes the stream. Only reading and writing are bounded by StreamTimeout.
func serve(ctx context.Context, stream quic.Stream, respond func(ctx context.Context, request []byte) []byte) error {
	defer stream.Close()

	readCtx, cancel := context.WithTimeout(ctx, transport.StreamTimeout)
	req, err := ReadMessageWithContext(readCtx, stream)
	cancel()
	if err != nil {
		return err
	}

	resp := respond(ctx, req.Content)

	writeCtx, cancel := context.WithTimeout(ctx, transport.StreamTimeout)
	defer cancel()
	return WriteMessageWithContext(writeCtx, stream, resp)
}
