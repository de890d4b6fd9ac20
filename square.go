package main

import (
	"fyne.io/fyne"
)

// squareGrid places objects in equal square cells, centered in the space
// given. With cols <= 0 every object goes in a single row.
type squareGrid struct{ cols, minCell int }

func newSquareRow(minCell int) fyne.Layout { return squareGrid{minCell: minCell} }

func newSquareGrid(cols, minCell int) fyne.Layout {
	return squareGrid{cols: cols, minCell: minCell}
}

func (g squareGrid) dims(n int) (cols, rows int) {
	cols = g.cols
	if cols <= 0 || cols > n {
		cols = n
	}
	if cols == 0 {
		return 0, 0
	}
	return cols, (n + cols - 1) / cols
}

func (g squareGrid) MinSize(objects []fyne.CanvasObject) fyne.Size {
	cell := g.minCell
	for _, obj := range objects {
		size := obj.MinSize()
		if size.Height > cell {
			cell = size.Height
		}
		if size.Width > cell {
			cell = size.Width
		}
	}
	cols, rows := g.dims(len(objects))
	return fyne.NewSize(cell*cols, cell*rows)
}

func (g squareGrid) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	cols, rows := g.dims(len(objects))
	if cols == 0 {
		return
	}

	side := size.Width / cols
	if h := size.Height / rows; h < side {
		side = h
	}
	cell := fyne.NewSize(side, side)
	xOffset := (size.Width - side*cols) / 2
	yOffset := (size.Height - side*rows) / 2

	for i, obj := range objects {
		obj.Move(fyne.NewPos(xOffset+i%cols*side, yOffset+i/cols*side))
		obj.Resize(cell)
	}
}
