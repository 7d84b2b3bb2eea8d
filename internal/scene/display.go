package scene

// DrawOp is one paint instruction in a flattened frame. Coordinates are
// absolute device pixels; the websocket client replays ops in order onto a
// canvas.
type DrawOp struct {
	Op        string  `json:"op"` // "rect" | "line" | "text"
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	W         float64 `json:"w,omitempty"`
	H         float64 `json:"h,omitempty"`
	X2        float64 `json:"x2,omitempty"`
	Y2        float64 `json:"y2,omitempty"`
	Text      string  `json:"text,omitempty"`
	Size      float64 `json:"size,omitempty"`
	Align     string  `json:"align,omitempty"`
	Baseline  string  `json:"baseline,omitempty"`
	Color     Color   `json:"color,omitempty"`
	Alpha     float64 `json:"alpha"`
	LineWidth float64 `json:"lineWidth,omitempty"`
}

// Flatten walks the tree depth-first in paint order, accumulating parent
// offsets and alpha, and skipping invisible subtrees entirely.
func Flatten(root *Node) []DrawOp {
	var ops []DrawOp
	flattenInto(root, 0, 0, 1, &ops)
	return ops
}

func flattenInto(n *Node, offX, offY, alpha float64, ops *[]DrawOp) {
	if n == nil || !n.visible {
		return
	}
	x := offX + n.x
	y := offY + n.y
	a := alpha * n.alpha

	switch n.kind {
	case KindRect:
		*ops = append(*ops, DrawOp{
			Op: "rect", X: x, Y: y, W: n.width, H: n.height,
			Color: n.color, Alpha: a,
		})
	case KindLine:
		*ops = append(*ops, DrawOp{
			Op: "line", X: x, Y: y, X2: x + n.dx2, Y2: y + n.dy2,
			Color: n.color, Alpha: a, LineWidth: n.thickness,
		})
	case KindText:
		*ops = append(*ops, DrawOp{
			Op: "text", X: x, Y: y, Text: n.text, Size: n.fontSize,
			Align: anchorAlign(n.anchorX), Baseline: anchorBaseline(n.anchorY),
			Color: n.color, Alpha: a,
		})
	}
	for _, c := range n.children {
		flattenInto(c, x, y, a, ops)
	}
}

func anchorAlign(ax float64) string {
	switch {
	case ax < 0.25:
		return "left"
	case ax < 0.75:
		return "center"
	default:
		return "right"
	}
}

func anchorBaseline(ay float64) string {
	switch {
	case ay < 0.25:
		return "top"
	case ay < 0.75:
		return "middle"
	default:
		return "bottom"
	}
}
