// ABOUTME: Export and offline edit entry points
// ABOUTME: Encodes session audio and runs trim or merge on stored blobs
package studio

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/joomcode/errorx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Resonate-Protocol/resonate-studio/internal/library"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/edit"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-studio/pkg/studioerr"
)

// Encoder returns the encoder used for exports
func (e *Engine) Encoder() encode.Encoder {
	return e.encoder
}

// Export encodes everything the current session received. It returns nil, nil
// when nothing has been received.
func (e *Engine) Export(ctx context.Context) (blob []byte, err error) {
	_, span := tracer.Start(ctx, "studio.export")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	e.mu.Lock()
	raw := e.rawChunks
	var joined *audio.Buffer
	if e.container {
		joined = concatFirstChannel(e.history)
	}
	e.mu.Unlock()

	if len(raw) == 0 {
		return nil, nil
	}

	if joined != nil {
		blob, err = e.encoder.Encode(joined)
	} else {
		blob, err = encode.EncodeRaw(e.encoder, raw)
	}
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("bytes", len(blob)), attribute.Int("chunks", len(raw)))
	e.metrics.Exported(e.encoder.Extension())
	return blob, nil
}

// concatFirstChannel joins channel 0 of each buffer into a new mono buffer
func concatFirstChannel(bufs []*audio.Buffer) *audio.Buffer {
	total := 0
	for _, b := range bufs {
		total += b.Len()
	}

	out := audio.NewBuffer(1, total, audio.SampleRate)
	pos := 0
	for _, b := range bufs {
		if b.NumChannels() == 0 {
			continue
		}
		pos += copy(out.Channels[0][pos:], b.Channels[0])
	}
	return out
}

// ExportBuffer encodes an explicit buffer
func (e *Engine) ExportBuffer(ctx context.Context, buf *audio.Buffer) ([]byte, error) {
	if buf == nil || buf.Len() == 0 {
		return nil, studioerr.MissingPrerequisite.New("nothing to export")
	}
	blob, err := e.encoder.Encode(buf)
	if err != nil {
		return nil, err
	}
	e.metrics.Exported(e.encoder.Extension())
	return blob, nil
}

// SaveBuffer encodes buf and stores it with the recorder
func (e *Engine) SaveBuffer(ctx context.Context, buf *audio.Buffer, title, voice, style string) (library.Record, error) {
	if e.opts.Recorder == nil {
		return library.Record{}, studioerr.MissingPrerequisite.New("no library configured")
	}
	blob, err := e.ExportBuffer(ctx, buf)
	if err != nil {
		return library.Record{}, err
	}

	rec := library.Record{
		ID:        uuid.NewString(),
		Title:     title,
		Voice:     voice,
		Style:     style,
		Duration:  buf.Duration(),
		Timestamp: time.Now(),
		Blob:      blob,
	}
	if err := e.opts.Recorder.Save(ctx, rec); err != nil {
		return library.Record{}, err
	}
	return rec, nil
}

// DecodeBlob decodes a complete recording
func (e *Engine) DecodeBlob(data []byte) (*audio.Buffer, error) {
	res := e.decoder.Decode(data)
	if !res.OK() {
		return nil, errorx.Decorate(res.Err, "failed to decode recording")
	}
	return res.Buffer, nil
}

// TrimBlob decodes a recording, keeps [start, end) and encodes the result
func (e *Engine) TrimBlob(ctx context.Context, data []byte, start, end float64) ([]byte, *audio.Buffer, error) {
	buf, err := e.DecodeBlob(data)
	if err != nil {
		return nil, nil, err
	}
	trimmed, err := edit.Trim(buf, start, end)
	if err != nil {
		return nil, nil, err
	}
	blob, err := e.ExportBuffer(ctx, trimmed)
	if err != nil {
		return nil, nil, err
	}
	return blob, trimmed, nil
}

// MergeBlobs decodes recordings and joins them with a gap or crossfade
func (e *Engine) MergeBlobs(ctx context.Context, blobs [][]byte, mode edit.Mode, transition float64) ([]byte, *audio.Buffer, error) {
	if len(blobs) < 2 {
		return nil, nil, studioerr.InvalidEdit.New("merge needs at least 2 recordings, got %d", len(blobs))
	}

	bufs := make([]*audio.Buffer, 0, len(blobs))
	for _, data := range blobs {
		buf, err := e.DecodeBlob(data)
		if err != nil {
			return nil, nil, err
		}
		bufs = append(bufs, buf)
	}

	merged, err := edit.Merge(bufs, mode, transition)
	if err != nil {
		return nil, nil, err
	}
	blob, err := e.ExportBuffer(ctx, merged)
	if err != nil {
		return nil, nil, err
	}
	return blob, merged, nil
}
