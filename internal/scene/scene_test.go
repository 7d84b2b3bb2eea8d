package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddChildReparents(t *testing.T) {
	a := NewContainer()
	b := NewContainer()
	n := NewRect(10, 10, "#fff")

	a.AddChild(n)
	require.Same(t, a, n.Parent())
	require.Len(t, a.Children(), 1)

	b.AddChild(n)
	assert.Same(t, b, n.Parent())
	assert.Empty(t, a.Children())
	assert.Len(t, b.Children(), 1)
}

func TestRemoveDetaches(t *testing.T) {
	root := NewContainer()
	a := NewRect(1, 1, "#fff")
	b := NewRect(2, 2, "#fff")
	c := NewRect(3, 3, "#fff")
	root.AddChild(a, b, c)

	b.Remove()
	require.Nil(t, b.Parent())
	require.Len(t, root.Children(), 2)
	// Paint order of the survivors is preserved.
	assert.Same(t, a, root.Children()[0])
	assert.Same(t, c, root.Children()[1])

	// Removing twice is a no-op.
	b.Remove()
	assert.Len(t, root.Children(), 2)
}

func TestFlattenAccumulatesOffsets(t *testing.T) {
	root := NewContainer()
	root.SetPosition(10, 20)
	group := NewContainer()
	group.SetPosition(5, 5)
	r := NewRect(40, 30, "#2962ff")
	r.SetPosition(1, 2)
	group.AddChild(r)
	root.AddChild(group)

	ops := Flatten(root)
	require.Len(t, ops, 1)
	assert.Equal(t, "rect", ops[0].Op)
	assert.InDelta(t, 16.0, ops[0].X, 1e-9)
	assert.InDelta(t, 27.0, ops[0].Y, 1e-9)
	assert.InDelta(t, 40.0, ops[0].W, 1e-9)
	assert.InDelta(t, 30.0, ops[0].H, 1e-9)
}

func TestFlattenSkipsInvisibleSubtrees(t *testing.T) {
	root := NewContainer()
	hidden := NewContainer()
	hidden.SetVisible(false)
	hidden.AddChild(NewRect(10, 10, "#fff"), NewText("x", 12, "#fff"))
	shown := NewLine(0, 50, 1, "#787b86")
	root.AddChild(hidden, shown)

	ops := Flatten(root)
	require.Len(t, ops, 1)
	assert.Equal(t, "line", ops[0].Op)
	assert.InDelta(t, 50.0, ops[0].Y2, 1e-9)
}

func TestFlattenMultipliesAlpha(t *testing.T) {
	root := NewContainer()
	root.SetAlpha(0.5)
	r := NewRect(10, 10, "#fff")
	r.SetAlpha(0.4)
	root.AddChild(r)

	ops := Flatten(root)
	require.Len(t, ops, 1)
	assert.InDelta(t, 0.2, ops[0].Alpha, 1e-9)
}

func TestFlattenPaintOrderIsInsertionOrder(t *testing.T) {
	root := NewContainer()
	root.AddChild(NewRect(1, 1, "#111"), NewRect(2, 2, "#222"), NewText("t", 10, "#333"))

	ops := Flatten(root)
	require.Len(t, ops, 3)
	assert.Equal(t, Color("#111"), ops[0].Color)
	assert.Equal(t, Color("#222"), ops[1].Color)
	assert.Equal(t, "text", ops[2].Op)
}

func TestTextAnchorsMapToCanvasAlignment(t *testing.T) {
	n := NewText("mid", 12, "#fff")
	n.SetAnchor(0.5, 1)
	root := NewContainer()
	root.AddChild(n)

	ops := Flatten(root)
	require.Len(t, ops, 1)
	assert.Equal(t, "center", ops[0].Align)
	assert.Equal(t, "bottom", ops[0].Baseline)

	n.SetAnchor(0, 0)
	ops = Flatten(root)
	assert.Equal(t, "left", ops[0].Align)
	assert.Equal(t, "top", ops[0].Baseline)
}

func TestMeasureTextScalesWithContent(t *testing.T) {
	short := NewText("1.5", 12, "#fff")
	long := NewText("1234.56", 12, "#fff")

	sw, sh := short.Measure()
	lw, lh := long.Measure()
	assert.Greater(t, lw, sw)
	assert.InDelta(t, sh, lh, 1e-9)
	assert.InDelta(t, 12*1.2, sh, 1e-9)

	bigger := NewText("1.5", 24, "#fff")
	bw, _ := bigger.Measure()
	assert.InDelta(t, 2*sw, bw, 1e-9)
}

func TestRemoveChildrenClearsInOnePass(t *testing.T) {
	root := NewContainer()
	a := NewRect(1, 1, "#fff")
	b := NewRect(2, 2, "#fff")
	root.AddChild(a, b)

	root.RemoveChildren()
	assert.Empty(t, root.Children())
	assert.Nil(t, a.Parent())
	assert.Nil(t, b.Parent())

	// Detached nodes can be re-added elsewhere.
	other := NewContainer()
	other.AddChild(a)
	assert.Same(t, other, a.Parent())
}
