package screenshot

// Tile is a viewport-sized capture region in page coordinate space.
type Tile struct {
	X, Y          int
	Width, Height int
}

// tileOrigins generates capture origins at multiples of the viewport size.
// The final origin is clamped to total-viewport so the far edge of the last
// tile lands exactly on the page bound instead of overshooting it; the
// resulting overlap is overwritten by the later paste.
func tileOrigins(total, viewport int) []int {
	if total <= viewport || viewport <= 0 {
		return []int{0}
	}
	var origins []int
	for o := 0; o < total; o += viewport {
		if o+viewport > total {
			o = total - viewport
		}
		origins = append(origins, o)
		if o == total-viewport {
			break
		}
	}
	return origins
}

// tileGrid produces the row-major capture plan for a page of totalWidth x
// totalHeight using viewport-sized tiles.
func tileGrid(totalWidth, totalHeight, viewportWidth, viewportHeight int) []Tile {
	rows := tileOrigins(totalHeight, viewportHeight)
	cols := tileOrigins(totalWidth, viewportWidth)
	tiles := make([]Tile, 0, len(rows)*len(cols))
	for _, y := range rows {
		for _, x := range cols {
			tiles = append(tiles, Tile{X: x, Y: y, Width: viewportWidth, Height: viewportHeight})
		}
	}
	return tiles
}
