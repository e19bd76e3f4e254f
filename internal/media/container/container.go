package container

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/asticode/go-astiav"

	"frame-viewer/internal/logging"
	"frame-viewer/internal/media"
)

// seekThreshold is how far ahead of the current position a request may be
// before seeking beats decoding forward.
const seekThreshold = 48

type decoder struct {
	path   string
	fc     *astiav.FormatContext
	stream *astiav.Stream
	codec  *astiav.Codec
	cc     *astiav.CodecContext
	pkt    *astiav.Packet
	frm    *astiav.Frame

	meta     media.Metadata
	tb       float64 // seconds per pts tick
	startPts int64
	draining bool
	// pending is set while pkt was refused with EAGAIN and must be resent
	// once the decoder has handed out a frame.
	pending bool

	// pos is the index of the last decoded frame, -1 before any decode.
	pos  int
	last image.Image
}

// Open opens a container and decodes its first frame. It satisfies
// media.Opener.
func Open(path string) (media.Decoder, error) {
	d := &decoder{path: path, pos: -1}
	if err := d.open(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *decoder) open() error {
	d.fc = astiav.AllocFormatContext()
	if d.fc == nil {
		return fmt.Errorf("failed to allocate format context")
	}
	if err := d.fc.OpenInput(d.path, nil, nil); err != nil {
		return fmt.Errorf("%w: open %s: %v", media.ErrNotFound, d.path, err)
	}
	if err := d.fc.FindStreamInfo(nil); err != nil {
		return fmt.Errorf("failed to find stream info: %w", err)
	}

	for _, s := range d.fc.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			d.stream = s
			break
		}
	}
	if d.stream == nil {
		return fmt.Errorf("%w: no video stream in %s", media.ErrUnsupported, d.path)
	}

	d.codec = astiav.FindDecoder(d.stream.CodecParameters().CodecID())
	if d.codec == nil {
		return fmt.Errorf("%w: no decoder for %s", media.ErrUnsupported, d.path)
	}
	if err := d.openCodec(); err != nil {
		return err
	}

	d.pkt = astiav.AllocPacket()
	d.frm = astiav.AllocFrame()

	tb := d.stream.TimeBase()
	if tb.Den() == 0 {
		return fmt.Errorf("%w: invalid time base in %s", media.ErrUnsupported, d.path)
	}
	d.tb = float64(tb.Num()) / float64(tb.Den())

	fps := 0.0
	if r := d.stream.AvgFrameRate(); r.Den() != 0 && r.Num() != 0 {
		fps = float64(r.Num()) / float64(r.Den())
	}
	if fps <= 0 {
		return fmt.Errorf("%w: unknown frame rate in %s", media.ErrUnsupported, d.path)
	}

	count := int(d.stream.NbFrames())
	if count <= 0 {
		count = int(math.Round(float64(d.fc.Duration()) / 1e6 * fps))
	}
	if count <= 0 {
		return fmt.Errorf("%w: unknown frame count in %s", media.ErrUnsupported, d.path)
	}

	d.meta = media.Metadata{
		FirstFrame: 0,
		LastFrame:  count - 1,
		FPS:        fps,
		Width:      d.stream.CodecParameters().Width(),
		Height:     d.stream.CodecParameters().Height(),
	}

	// The first decoded frame anchors pts-to-index conversion.
	img, pts, err := d.decodeNext()
	if err != nil {
		return fmt.Errorf("decode first frame of %s: %w", d.path, err)
	}
	if pts != astiav.NoPtsValue {
		d.startPts = pts
	}
	d.pos = 0
	d.last = img
	if b := img.Bounds(); b.Dx() > 0 && b.Dy() > 0 {
		d.meta.Width, d.meta.Height = b.Dx(), b.Dy()
	}

	logging.Debug("Opened container %s: %d frames at %.3f fps (%dx%d)",
		d.path, count, fps, d.meta.Width, d.meta.Height)
	return nil
}

func (d *decoder) openCodec() error {
	if d.cc != nil {
		d.cc.Free()
	}
	d.cc = astiav.AllocCodecContext(d.codec)
	if d.cc == nil {
		return fmt.Errorf("failed to allocate codec context")
	}
	if err := d.cc.FromCodecParameters(d.stream.CodecParameters()); err != nil {
		return fmt.Errorf("failed to copy codec parameters: %w", err)
	}
	if err := d.cc.Open(d.codec, nil); err != nil {
		return fmt.Errorf("failed to open codec: %w", err)
	}
	d.draining = false
	if d.pending {
		d.pkt.Unref()
		d.pending = false
	}
	return nil
}

func (d *decoder) Metadata() media.Metadata {
	return d.meta
}

func (d *decoder) Read(index int) (image.Image, error) {
	if d.fc == nil {
		return nil, media.ErrClosed
	}
	if index < d.meta.FirstFrame || index > d.meta.LastFrame {
		return nil, &media.DecodeError{
			Source: d.path,
			Index:  index,
			Err:    fmt.Errorf("frame outside %d-%d", d.meta.FirstFrame, d.meta.LastFrame),
		}
	}
	if index == d.pos && d.last != nil {
		return d.last, nil
	}

	if d.pos < 0 || index < d.pos || index > d.pos+seekThreshold {
		if err := d.seek(index); err != nil {
			return nil, &media.DecodeError{Source: d.path, Index: index, Err: err}
		}
	}

	for {
		img, pts, err := d.decodeNext()
		if err != nil {
			if errors.Is(err, io.EOF) && d.last != nil && d.pos >= 0 {
				// Containers often overstate their frame count by one or two.
				logging.Debug("%s ended at frame %d before %d", d.path, d.pos, index)
				return d.last, nil
			}
			return nil, &media.DecodeError{Source: d.path, Index: index, Err: err}
		}

		idx := d.pos + 1
		if pts != astiav.NoPtsValue {
			idx = int(math.Round(float64(pts-d.startPts) * d.tb * d.meta.FPS))
		}
		d.pos, d.last = idx, img
		if idx >= index {
			return img, nil
		}
	}
}

// seek positions the demuxer on the keyframe at or before index.
func (d *decoder) seek(index int) error {
	ts := d.startPts + int64(math.Floor(float64(index)/d.meta.FPS/d.tb))
	if err := d.fc.SeekFrame(d.stream.Index(), ts, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
		return fmt.Errorf("seek to frame %d: %w", index, err)
	}
	if err := d.openCodec(); err != nil {
		return err
	}
	d.pos, d.last = -1, nil
	return nil
}

// decodeNext returns the next decoded frame and its pts. io.EOF reports the
// end of the stream.
func (d *decoder) decodeNext() (image.Image, int64, error) {
	for {
		err := d.cc.ReceiveFrame(d.frm)
		if err == nil {
			pts := d.frm.Pts()
			img, err := frameToImage(d.frm)
			d.frm.Unref()
			return img, pts, err
		}
		if errors.Is(err, astiav.ErrEof) {
			return nil, 0, io.EOF
		}
		if !errors.Is(err, astiav.ErrEagain) {
			return nil, 0, fmt.Errorf("failed to receive frame: %w", err)
		}

		if d.pending {
			if err := d.send(); err != nil {
				return nil, 0, err
			}
			continue
		}
		if d.draining {
			return nil, 0, io.EOF
		}
		if err := d.fc.ReadFrame(d.pkt); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				d.draining = true
				if err := d.cc.SendPacket(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
					return nil, 0, fmt.Errorf("failed to flush decoder: %w", err)
				}
				continue
			}
			return nil, 0, fmt.Errorf("failed to read packet: %w", err)
		}
		if d.pkt.StreamIndex() != d.stream.Index() {
			d.pkt.Unref()
			continue
		}
		if err := d.send(); err != nil {
			return nil, 0, err
		}
	}
}

// send feeds pkt to the decoder. A packet refused with EAGAIN is kept and
// retried after the next ReceiveFrame.
func (d *decoder) send() error {
	err := d.cc.SendPacket(d.pkt)
	if errors.Is(err, astiav.ErrEagain) {
		if d.pending {
			// Both directions reported EAGAIN; libav promises this cannot happen.
			d.pkt.Unref()
			d.pending = false
			return errors.New("decoder stalled: packet and frame queues both full")
		}
		d.pending = true
		return nil
	}
	d.pkt.Unref()
	d.pending = false
	if err != nil {
		return fmt.Errorf("failed to send packet: %w", err)
	}
	return nil
}

func frameToImage(frame *astiav.Frame) (image.Image, error) {
	if frame.Width() <= 0 || frame.Height() <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions: %dx%d", frame.Width(), frame.Height())
	}

	img, err := frame.Data().GuessImageFormat()
	if err != nil {
		return nil, fmt.Errorf("failed to guess image format: %w", err)
	}
	if err := frame.Data().ToImage(img); err != nil {
		return nil, fmt.Errorf("failed to convert frame to image: %w", err)
	}
	return img, nil
}

func (d *decoder) Close() error {
	if d.frm != nil {
		d.frm.Free()
		d.frm = nil
	}
	if d.pkt != nil {
		d.pkt.Free()
		d.pkt = nil
	}
	if d.cc != nil {
		d.cc.Free()
		d.cc = nil
	}
	if d.fc != nil {
		d.fc.CloseInput()
		d.fc.Free()
		d.fc = nil
	}
	d.last = nil
	return nil
}
