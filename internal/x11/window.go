package x11

import (
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/jezek/xgb/xproto"

	"github.com/yiblet/halen/internal/popup"
)

// FallbackFont is always present on an X server.
const FallbackFont = "fixed"

// WindowOptions configures the popup window.
type WindowOptions struct {
	Style      popup.Style
	Font       string
	FontSize   int
	Background uint32 // 0xRRGGBB
	Foreground uint32
	CountColor uint32
}

// Window is the popup implemented as an override-redirect window drawn with
// a core font. It implements popup.Popup.
type Window struct {
	d  *Display
	id xproto.Window
	gc xproto.Gcontext

	mu      sync.Mutex
	font    xproto.Font
	metrics popup.Metrics
	ascent  int
	pixels  struct{ bg, fg, count uint32 }
	style   popup.Style
	placer  *popup.Placer
	text    string
	index   int
	count   int
	size    popup.Size
	showing bool
}

var _ popup.Popup = (*Window)(nil)

// NewWindow creates the popup window unmapped.
func (d *Display) NewWindow(opts WindowOptions) (*Window, error) {
	wid, err := xproto.NewWindowId(d.conn)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate window id: %w", err)
	}
	gc, err := xproto.NewGcontextId(d.conn)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate graphics context id: %w", err)
	}

	w := &Window{
		d:      d,
		id:     wid,
		gc:     gc,
		style:  opts.Style,
		placer: popup.NewPlacer(opts.Style, d.ScreenSize()),
	}
	if err := w.allocColors(opts); err != nil {
		return nil, err
	}

	err = xproto.CreateWindowChecked(d.conn, d.screen.RootDepth, wid, d.root(),
		0, 0, popup.DefaultWidth, popup.DefaultHeight, 1,
		xproto.WindowClassInputOutput, d.screen.RootVisual,
		xproto.CwBackPixel|xproto.CwBorderPixel|xproto.CwOverrideRedirect|xproto.CwEventMask,
		[]uint32{w.pixels.bg, w.pixels.fg, 1, xproto.EventMaskExposure},
	).Check()
	if err != nil {
		return nil, fmt.Errorf("failed to create popup window: %w", err)
	}

	font, err := w.openFont(opts.Font, opts.FontSize)
	if err != nil {
		xproto.DestroyWindow(d.conn, wid)
		return nil, err
	}
	w.font = font

	err = xproto.CreateGCChecked(d.conn, gc, xproto.Drawable(wid),
		xproto.GcForeground|xproto.GcBackground|xproto.GcFont,
		[]uint32{w.pixels.fg, w.pixels.bg, uint32(font)},
	).Check()
	if err != nil {
		xproto.DestroyWindow(d.conn, wid)
		return nil, fmt.Errorf("failed to create graphics context: %w", err)
	}

	d.register(w)
	return w, nil
}

func (w *Window) allocColor(rgb uint32) (uint32, error) {
	r := uint16(rgb>>16&0xff) * 0x101
	g := uint16(rgb>>8&0xff) * 0x101
	b := uint16(rgb&0xff) * 0x101
	reply, err := xproto.AllocColor(w.d.conn, w.d.screen.DefaultColormap, r, g, b).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate colour %06x: %w", rgb, err)
	}
	return reply.Pixel, nil
}

func (w *Window) allocColors(opts WindowOptions) error {
	var err error
	if w.pixels.bg, err = w.allocColor(opts.Background); err != nil {
		return err
	}
	if w.pixels.fg, err = w.allocColor(opts.Foreground); err != nil {
		return err
	}
	if w.pixels.count, err = w.allocColor(opts.CountColor); err != nil {
		return err
	}
	return nil
}

// fontCandidates lists the names tried for a font family and pixel size.
func fontCandidates(name string, size int) []string {
	var names []string
	if name != "" && name[0] != '-' && size > 0 {
		names = append(names, fmt.Sprintf("-*-%s-medium-r-normal--%d-*-*-*-*-*-iso8859-1", name, size))
	}
	if name != "" {
		names = append(names, name)
	}
	return append(names, FallbackFont)
}

func (w *Window) openFont(name string, size int) (xproto.Font, error) {
	fid, err := xproto.NewFontId(w.d.conn)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate font id: %w", err)
	}

	for _, candidate := range fontCandidates(name, size) {
		if err := xproto.OpenFontChecked(w.d.conn, fid, uint16(len(candidate)), candidate).Check(); err != nil {
			slog.Debug("font not available", "font", candidate, "error", err)
			continue
		}
		reply, err := xproto.QueryFont(w.d.conn, xproto.Fontable(fid)).Reply()
		if err != nil {
			xproto.CloseFont(w.d.conn, fid)
			continue
		}
		w.metrics = popup.Metrics{
			CharWidth:  int(reply.MaxBounds.CharacterWidth),
			LineHeight: int(reply.FontAscent + reply.FontDescent),
		}
		w.ascent = int(reply.FontAscent)
		slog.Debug("popup font loaded", "font", candidate, "line_height", w.metrics.LineHeight)
		return fid, nil
	}
	return 0, fmt.Errorf("failed to open any font for %q", name)
}

// SetOptions applies new colours, font and placement.
func (w *Window) SetOptions(opts WindowOptions) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.allocColors(opts); err != nil {
		return err
	}
	font, err := w.openFont(opts.Font, opts.FontSize)
	if err != nil {
		return err
	}
	xproto.CloseFont(w.d.conn, w.font)
	w.font = font

	xproto.ChangeGC(w.d.conn, w.gc, xproto.GcFont, []uint32{uint32(font)})
	xproto.ChangeWindowAttributes(w.d.conn, w.id, xproto.CwBackPixel|xproto.CwBorderPixel,
		[]uint32{w.pixels.bg, w.pixels.fg})
	w.style = opts.Style
	w.placer.SetStyle(opts.Style)
	return nil
}

func (w *Window) SetPosition(index, count int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.index = index
	w.count = count
}

func (w *Window) IsShowing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.showing
}

func (w *Window) Show(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.show(text)
}

// Update redraws a showing popup with new text, or shows it.
func (w *Window) Update(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.showing {
		return w.show(text)
	}
	w.text = text
	if err := w.layout(); err != nil {
		return err
	}
	w.draw()
	return nil
}

func (w *Window) show(text string) error {
	w.text = text
	if err := w.layout(); err != nil {
		return err
	}
	if !w.showing {
		if err := xproto.MapWindowChecked(w.d.conn, w.id).Check(); err != nil {
			return fmt.Errorf("failed to map popup: %w", err)
		}
		w.showing = true
	}
	w.draw()
	return nil
}

func (w *Window) Hide() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.showing {
		return nil
	}
	w.showing = false
	w.placer.Reset()
	if err := xproto.UnmapWindowChecked(w.d.conn, w.id).Check(); err != nil {
		return fmt.Errorf("failed to unmap popup: %w", err)
	}
	return nil
}

// Destroy frees the window and its resources.
func (w *Window) Destroy() {
	w.d.unregister(w)
	xproto.FreeGC(w.d.conn, w.gc)
	xproto.CloseFont(w.d.conn, w.font)
	xproto.DestroyWindow(w.d.conn, w.id)
}

// layout moves and resizes the window for the current text. Caller holds mu.
func (w *Window) layout() error {
	size := popup.Measure(w.text, w.metrics, w.d.ScreenSize(), w.style)
	rect := w.placer.Place(size, w.d.Pointer())
	w.size = rect.Size

	err := xproto.ConfigureWindowChecked(w.d.conn, w.id,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|
			xproto.ConfigWindowHeight|xproto.ConfigWindowStackMode,
		[]uint32{
			uint32(int32(rect.X)), uint32(int32(rect.Y)),
			uint32(rect.Width), uint32(rect.Height),
			xproto.StackModeAbove,
		},
	).Check()
	if err != nil {
		return fmt.Errorf("failed to place popup: %w", err)
	}
	return nil
}

func (w *Window) redraw() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.showing {
		w.draw()
	}
}

const (
	textLeft   = 15
	statusLeft = 5
	textTop    = 20
)

// draw paints the counter, the entry text and the status bar. Caller
// holds mu.
func (w *Window) draw() {
	conn, drawable := w.d.conn, xproto.Drawable(w.id)
	lineHeight := max(w.metrics.LineHeight, 1)
	width, height := w.size.Width, w.size.Height

	xproto.ClearArea(conn, false, w.id, 0, 0, 0, 0)

	counter := popup.Counter(w.index, w.count)
	xproto.ChangeGC(conn, w.gc, xproto.GcForeground, []uint32{w.pixels.count})
	w.drawText(width-len(counter)*w.metrics.CharWidth-2, w.ascent+2, counter)

	xproto.ChangeGC(conn, w.gc, xproto.GcForeground, []uint32{w.pixels.fg})
	y := w.ascent + textTop
	for _, line := range popup.Lines(w.text) {
		if y > height-2*lineHeight {
			break
		}
		w.drawText(textLeft, y, line)
		y += lineHeight + 2
	}

	statusY := height - lineHeight - 2
	separatorY := statusY - lineHeight/2 + 5
	xproto.PolyLine(conn, xproto.CoordModeOrigin, drawable, w.gc, []xproto.Point{
		{X: int16(statusLeft), Y: int16(separatorY)},
		{X: int16(width - statusLeft), Y: int16(separatorY)},
	})
	w.drawText(statusLeft, statusY+w.ascent, popup.StatusBar)
}

func (w *Window) drawText(x, y int, s string) {
	text := latin1(s)
	if len(text) == 0 {
		return
	}
	xproto.ImageText8(w.d.conn, byte(len(text)), xproto.Drawable(w.id), w.gc, int16(x), int16(y), text)
}

// latin1 converts s for an ISO 8859-1 core font, replacing other runes with
// '?' and cutting to the 255 bytes a single request can carry.
func latin1(s string) string {
	out := make([]byte, 0, min(len(s), 255))
	for _, r := range s {
		if len(out) == 255 {
			break
		}
		if r == utf8.RuneError || r > 0xff {
			r = '?'
		}
		out = append(out, byte(r))
	}
	return string(out)
}
