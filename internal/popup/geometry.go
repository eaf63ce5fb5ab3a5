package popup

import "unicode/utf8"

// Mode chooses the reference point the popup is anchored to.
type Mode string

const (
	ModeMouse    Mode = "mouse"
	ModeScreen   Mode = "screen"
	ModeAbsolute Mode = "absolute"
)

// Anchor is the point of the popup pinned to the reference point, numbered
// like a phone keypad: 1 top-left, 5 centre, 9 bottom-right.
type Anchor int

const (
	TopLeft Anchor = iota + 1
	TopCenter
	TopRight
	CenterLeft
	Center
	CenterRight
	BottomLeft
	BottomCenter
	BottomRight
)

// column returns 0, 1 or 2 for left, centre and right anchors.
func (a Anchor) column() int {
	if a < TopLeft || a > BottomRight {
		return 1
	}
	return int(a-1) % 3
}

// row returns 0, 1 or 2 for top, centre and bottom anchors.
func (a Anchor) row() int {
	if a < TopLeft || a > BottomRight {
		return 1
	}
	return int(a-1) / 3
}

// fraction positions an anchor within a span: 0, half or all of it.
func fraction(part, span int) int {
	return part * span / 2
}

type Point struct{ X, Y int }

type Size struct{ Width, Height int }

type Rect struct {
	Point
	Size
}

// Style is the placement configuration.
type Style struct {
	Mode             Mode
	Position         Point // used by ModeAbsolute
	Anchor           Anchor
	MarginVertical   int
	MarginHorizontal int
}

// Metrics describes a fixed-width font.
type Metrics struct {
	CharWidth  int
	LineHeight int
}

const (
	DefaultWidth  = 600
	DefaultHeight = 200
	MinWidth      = 400
	MinHeight     = 100

	lineSpacing   = 2
	headerPadding = 20
	footerPadding = 30
	sidePadding   = 40
)

// Measure returns the window size needed for text, clamped to the minimum
// size and to the screen less its margins.
func Measure(text string, m Metrics, screen Size, style Style) Size {
	size := Size{Width: DefaultWidth, Height: DefaultHeight}
	if m.CharWidth > 0 && m.LineHeight > 0 {
		widest := 0
		lines := Lines(text)
		for _, line := range lines {
			widest = max(widest, utf8.RuneCountInString(line)*m.CharWidth)
		}
		size.Width = widest + sidePadding
		size.Height = m.LineHeight + headerPadding +
			len(lines)*(m.LineHeight+lineSpacing) +
			m.LineHeight + footerPadding
	}

	size.Width = max(size.Width, MinWidth)
	size.Height = max(size.Height, MinHeight)
	if limit := screen.Width - 2*style.MarginHorizontal; limit > 0 {
		size.Width = min(size.Width, limit)
	}
	if limit := screen.Height - 2*style.MarginVertical; limit > 0 {
		size.Height = min(size.Height, limit)
	}
	return size
}

// Placer positions the popup. The first placement after Reset picks the
// reference point; later placements keep the anchored point fixed so the
// window grows and shrinks around it.
type Placer struct {
	style  Style
	screen Size

	placed bool
	pinned Point
}

func NewPlacer(style Style, screen Size) *Placer {
	return &Placer{style: style, screen: screen}
}

// Reset forgets the pinned point. Called when the popup is hidden.
func (p *Placer) Reset() {
	p.placed = false
}

// SetStyle replaces the placement configuration and forgets the pinned point.
func (p *Placer) SetStyle(style Style) {
	p.style = style
	p.placed = false
}

func (p *Placer) reference(pointer Point) Point {
	switch p.style.Mode {
	case ModeMouse:
		return pointer
	case ModeScreen:
		return Point{
			X: fraction(p.style.Anchor.column(), p.screen.Width),
			Y: fraction(p.style.Anchor.row(), p.screen.Height),
		}
	case ModeAbsolute:
		return p.style.Position
	}
	return Point{X: p.screen.Width / 2, Y: p.screen.Height / 2}
}

func (p *Placer) origin(pin Point, size Size) Point {
	return Point{
		X: pin.X - fraction(p.style.Anchor.column(), size.Width),
		Y: pin.Y - fraction(p.style.Anchor.row(), size.Height),
	}
}

func (p *Placer) clamp(pt Point, size Size) Point {
	mh, mv := p.style.MarginHorizontal, p.style.MarginVertical
	if pt.X+size.Width > p.screen.Width-mh {
		pt.X = p.screen.Width - size.Width - mh
	}
	if pt.Y+size.Height > p.screen.Height-mv {
		pt.Y = p.screen.Height - size.Height - mv
	}
	pt.X = max(pt.X, mh)
	pt.Y = max(pt.Y, mv)
	return pt
}

// Place returns the window rectangle for size. pointer is the current mouse
// position, used in ModeMouse.
func (p *Placer) Place(size Size, pointer Point) Rect {
	if !p.placed {
		origin := p.clamp(p.origin(p.reference(pointer), size), size)
		p.pinned = Point{
			X: origin.X + fraction(p.style.Anchor.column(), size.Width),
			Y: origin.Y + fraction(p.style.Anchor.row(), size.Height),
		}
		p.placed = true
		return Rect{Point: origin, Size: size}
	}

	origin := p.origin(p.pinned, size)
	if p.style.Mode != ModeScreen {
		origin = p.clamp(origin, size)
	}
	return Rect{Point: origin, Size: size}
}
