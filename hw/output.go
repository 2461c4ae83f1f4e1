package hw

import (
	"image"
	"image/png"
	"os"
	"sync"
)

type OutputConfig struct {
	Palette         *Palette
	NumVideoBuffers int

	// If non-nil, rendered frames are sent on this channel, else they're
	// discarded (headless).
	FrameOutCh chan *image.RGBA
}

// Output converts PPU frames into RGBA images, in a separate goroutine.
// Converted images are rotated among NumVideoBuffers buffers so a consumer
// can hold a frame while the next one is being converted.
type Output struct {
	framebufidx int
	framebuf    []*image.RGBA

	framecounter int
	framech      chan frame
	done         chan struct{}

	mu   sync.Mutex
	last *image.RGBA

	cfg OutputConfig
}

func NewOutput(cfg OutputConfig) *Output {
	if cfg.Palette == nil {
		cfg.Palette = DefaultPalette()
	}
	if cfg.NumVideoBuffers < 2 {
		cfg.NumVideoBuffers = 2
	}
	vb := make([]*image.RGBA, cfg.NumVideoBuffers)
	for i := range vb {
		vb[i] = image.NewRGBA(image.Rect(0, 0, 256, 240))
	}
	o := &Output{
		framebuf: vb,
		cfg:      cfg,
		framech:  make(chan frame),
		done:     make(chan struct{}),
	}
	go o.render()
	return o
}

type frame struct {
	pixels []uint16
	video  *image.RGBA
}

// EndFrame queues a copy of the PPU frame for conversion.
func (o *Output) EndFrame(pixels []uint16) {
	o.framebufidx++
	if o.framebufidx == o.cfg.NumVideoBuffers {
		o.framebufidx = 0
	}

	o.framecounter++
	o.framech <- frame{
		pixels: append([]uint16(nil), pixels...),
		video:  o.framebuf[o.framebufidx],
	}
}

func (o *Output) render() {
	defer close(o.done)
	for frame := range o.framech {
		o.cfg.Palette.RenderTo(frame.video, frame.pixels)
		o.mu.Lock()
		o.last = frame.video
		o.mu.Unlock()
		if o.cfg.FrameOutCh != nil {
			o.cfg.FrameOutCh <- frame.video
		}
	}
}

// Screenshot returns a copy of the last converted frame, or nil.
func (o *Output) Screenshot() *image.RGBA {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return nil
	}
	img := *o.last
	img.Pix = append([]uint8(nil), o.last.Pix...)
	return &img
}

// Close stops the conversion goroutine, after all queued frames have been
// processed.
func (o *Output) Close() {
	close(o.framech)
	<-o.done
}

// SaveAsPNG writes img into a PNG file.
func SaveAsPNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
