package http

// Renderer turns a named template and its data into a page
type Renderer interface {
	Render(name string, data any) ([]byte, error)
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(name string, data any) ([]byte, error)

func (f RendererFunc) Render(name string, data any) ([]byte, error) {
	return f(name, data)
}
