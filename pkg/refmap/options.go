package refmap

// config holds per-map settings shared by all variants.
type config[K comparable, V any] struct {
	dispose func(key K, value V)
}

// Option configures a map at construction time.
type Option[K comparable, V any] func(*config[K, V])

// WithDisposer registers a function to run after an entry has been
// removed by its final handle release. It runs outside the map lock,
// once per entry, on the goroutine that released the last handle.
// Handles detached by a replacing Insert still get their disposer call
// when their own count reaches zero.
func WithDisposer[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *config[K, V]) {
		c.dispose = fn
	}
}
