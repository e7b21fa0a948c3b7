package geometry

// GeometryBuilderOption is a functional option used to configure a Geometry during construction.
type GeometryBuilderOption func(*engineGeometry)

// WithAttribute sets a named attribute view.
//
// Parameters:
//   - name: the attribute name
//   - view: the backing view
//
// Returns:
//   - GeometryBuilderOption: a function that stores the attribute
func WithAttribute(name string, view *BufferView) GeometryBuilderOption {
	return func(g *engineGeometry) {
		if _, exists := g.attrs[name]; !exists {
			g.attrOrder = append(g.attrOrder, name)
		}
		g.attrs[name] = view
	}
}

// WithIndex sets the element index view.
//
// Parameters:
//   - view: the index view
//
// Returns:
//   - GeometryBuilderOption: a function that sets the index view
func WithIndex(view *IndexView) GeometryBuilderOption {
	return func(g *engineGeometry) {
		g.index = view
	}
}

// WithDrawRange restricts drawing to a window of vertices or indices.
//
// Parameters:
//   - start: first vertex or index
//   - count: number to draw (negative = through the end)
//
// Returns:
//   - GeometryBuilderOption: a function that sets the draw range
func WithDrawRange(start, count int) GeometryBuilderOption {
	return func(g *engineGeometry) {
		g.rangeStart = start
		g.rangeCount = count
	}
}
