// Package scene is a retained tree of drawable nodes. The interaction
// engine mutates the tree; a Renderer flushes it. Rasterization itself
// lives behind the Renderer interface, the tree is the whole contract.
package scene

// Kind discriminates what a node draws.
type Kind uint8

const (
	KindContainer Kind = iota
	KindText
	KindRect
	KindLine
)

// Color is a CSS-style hex string such as "#26a69a".
type Color string

// Text metrics use a fixed advance approximation so layout stays
// deterministic without a font engine. Real measurement is the renderer's
// business; overlays only need a stable estimate for clamping.
const (
	textAdvanceFactor = 0.6
	textLineHeight    = 1.2
)

type Node struct {
	kind    Kind
	x, y    float64
	visible bool
	alpha   float64
	color   Color

	parent   *Node
	children []*Node

	// text
	text     string
	fontSize float64
	anchorX  float64
	anchorY  float64

	// rect
	width, height float64

	// line endpoint, relative to the node position
	dx2, dy2  float64
	thickness float64
}

func newNode(kind Kind) *Node {
	return &Node{kind: kind, visible: true, alpha: 1}
}

func NewContainer() *Node { return newNode(KindContainer) }

func NewText(text string, size float64, color Color) *Node {
	n := newNode(KindText)
	n.text = text
	n.fontSize = size
	n.color = color
	return n
}

func NewRect(w, h float64, color Color) *Node {
	n := newNode(KindRect)
	n.width = w
	n.height = h
	n.color = color
	return n
}

func NewLine(dx2, dy2, thickness float64, color Color) *Node {
	n := newNode(KindLine)
	n.dx2 = dx2
	n.dy2 = dy2
	n.thickness = thickness
	n.color = color
	return n
}

func (n *Node) Kind() Kind { return n.kind }

func (n *Node) Position() (x, y float64) { return n.x, n.y }
func (n *Node) SetPosition(x, y float64) { n.x, n.y = x, y }

func (n *Node) Visible() bool      { return n.visible }
func (n *Node) SetVisible(v bool)  { n.visible = v }
func (n *Node) Alpha() float64     { return n.alpha }
func (n *Node) SetAlpha(a float64) { n.alpha = a }
func (n *Node) Color() Color       { return n.color }
func (n *Node) SetColor(c Color)   { n.color = c }

func (n *Node) Text() string          { return n.text }
func (n *Node) SetText(s string)      { n.text = s }
func (n *Node) FontSize() float64     { return n.fontSize }
func (n *Node) SetFontSize(s float64) { n.fontSize = s }

// SetAnchor places the text alignment point inside the glyph box:
// (0,0) top-left, (0.5,1) bottom-center, and so on.
func (n *Node) SetAnchor(ax, ay float64)    { n.anchorX, n.anchorY = ax, ay }
func (n *Node) Anchor() (ax, ay float64)    { return n.anchorX, n.anchorY }
func (n *Node) Size() (w, h float64)        { return n.width, n.height }
func (n *Node) SetSize(w, h float64)        { n.width, n.height = w, h }
func (n *Node) SetEndpoint(dx, dy float64)  { n.dx2, n.dy2 = dx, dy }
func (n *Node) Endpoint() (dx, dy float64)  { return n.dx2, n.dy2 }
func (n *Node) Thickness() float64          { return n.thickness }
func (n *Node) SetThickness(t float64)      { n.thickness = t }

func (n *Node) Parent() *Node      { return n.parent }
func (n *Node) Children() []*Node  { return n.children }

// AddChild appends children in paint order, reparenting as needed.
func (n *Node) AddChild(children ...*Node) {
	for _, c := range children {
		if c == nil || c == n {
			continue
		}
		if c.parent != nil {
			c.parent.removeChild(c)
		}
		c.parent = n
		n.children = append(n.children, c)
	}
}

// Remove detaches the node from its parent. Safe to call on a root.
func (n *Node) Remove() {
	if n.parent != nil {
		n.parent.removeChild(n)
		n.parent = nil
	}
}

func (n *Node) removeChild(c *Node) {
	for i, ch := range n.children {
		if ch == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

// RemoveChildren detaches every child in one pass.
func (n *Node) RemoveChildren() {
	for _, c := range n.children {
		c.parent = nil
	}
	n.children = n.children[:0]
}

// Measure reports the node's drawn extent. Text uses the fixed advance
// approximation; containers measure as empty.
func (n *Node) Measure() (w, h float64) {
	switch n.kind {
	case KindText:
		runes := 0
		for range n.text {
			runes++
		}
		return float64(runes) * n.fontSize * textAdvanceFactor, n.fontSize * textLineHeight
	case KindRect:
		return n.width, n.height
	case KindLine:
		return abs(n.dx2), abs(n.dy2)
	default:
		return 0, 0
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Renderer flushes the current tree. Implementations must not retain the
// root past the call; the engine keeps mutating it.
type Renderer interface {
	Render(root *Node)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(root *Node)

func (f RendererFunc) Render(root *Node) { f(root) }
