package texture

// LoaderBuilderOption is a functional option used to configure a Loader during construction.
type LoaderBuilderOption func(*engineLoader, *int)

// WithWorkers sets the number of decode workers in the loader's pool.
//
// Parameters:
//   - n: worker count (values below 1 are ignored)
//
// Returns:
//   - LoaderBuilderOption: a function that sets the worker count
func WithWorkers(n int) LoaderBuilderOption {
	return func(_ *engineLoader, workers *int) {
		if n >= 1 {
			*workers = n
		}
	}
}

// WithMaxDimension caps decoded texture dimensions; larger images are
// downscaled preserving aspect ratio.
//
// Parameters:
//   - px: the maximum width/height in pixels (0 disables scaling)
//
// Returns:
//   - LoaderBuilderOption: a function that sets the dimension cap
func WithMaxDimension(px int) LoaderBuilderOption {
	return func(l *engineLoader, _ *int) {
		l.maxDimension = px
	}
}
