package coords

// NormalizedBox is a bounding box expressed as fractions of the image
// dimensions with the origin in the bottom-left corner and y increasing upward.
// Y is the bottom edge of the box.
type NormalizedBox struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// PixelRect is an axis-aligned rectangle in top-left-origin pixel space.
// (X1, Y1) is the top-left corner, (X2, Y2) the bottom-right corner.
type PixelRect struct {
	X1 float64 `json:"x1" yaml:"x1"`
	Y1 float64 `json:"y1" yaml:"y1"`
	X2 float64 `json:"x2" yaml:"x2"`
	Y2 float64 `json:"y2" yaml:"y2"`
}

// Top returns the y coordinate of the top edge.
func (r PixelRect) Top() float64 { return r.Y1 }

// PlotRect is a rectangle anchored at its bottom-left corner in pixel rows
// counted from the top of the image. Height is negative so the rectangle
// extends upward from the anchor.
type PlotRect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Top returns the y coordinate of the top edge.
func (r PlotRect) Top() float64 { return r.Y + r.Height }

// ToPlotSpace converts a normalized box into the anchor/size form expected by
// plotting canvases.
func ToPlotSpace(b NormalizedBox, width, height int) PlotRect {
	w, h := float64(width), float64(height)
	return PlotRect{
		X:      b.X * w,
		Y:      (1 - b.Y) * h,
		Width:  b.Width * w,
		Height: -b.Height * h,
	}
}

// ToPixelSpace converts a normalized box into top-left-origin pixel corners.
func ToPixelSpace(b NormalizedBox, width, height int) PixelRect {
	w, h := float64(width), float64(height)
	x1 := b.X * w
	return PixelRect{
		X1: x1,
		Y1: (1 - b.Y - b.Height) * h,
		X2: x1 + b.Width*w,
		Y2: (1 - b.Y) * h,
	}
}

// FromTopLeft builds a NormalizedBox from a normalized box whose y is the top
// edge measured from the top of the image.
func FromTopLeft(x, yTop, width, height float64) NormalizedBox {
	return NormalizedBox{
		X:      x,
		Y:      1 - yTop - height,
		Width:  width,
		Height: height,
	}
}

// FromPixels normalizes a top-left-origin pixel rectangle.
func FromPixels(r PixelRect, width, height int) NormalizedBox {
	if width <= 0 || height <= 0 {
		return NormalizedBox{}
	}
	w, h := float64(width), float64(height)
	return FromTopLeft(r.X1/w, r.Y1/h, (r.X2-r.X1)/w, (r.Y2-r.Y1)/h)
}
