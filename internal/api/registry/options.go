package registry

// Option customises a resource at registration.
type Option func(*Resource)

// WithDefaultSort sets the sort used when a request names none, in the same
// syntax as the sort parameter, e.g. "-created_at".
func WithDefaultSort(sort string) Option {
	return func(r *Resource) { r.defaultSort = sort }
}

func WithPerPage(n int) Option {
	return func(r *Resource) { r.perPage = n }
}

// WithHidden removes columns or associations from the resource entirely.
func WithHidden(names ...string) Option {
	return func(r *Resource) {
		for _, n := range names {
			r.hidden[n] = true
		}
	}
}

// WithMethod exposes fn as an includable computed value.
func WithMethod[T any](name string, fn func(*T) any) Option {
	return func(r *Resource) {
		if _, exists := r.methods[name]; !exists {
			r.methodNames = append(r.methodNames, name)
		}
		r.methods[name] = func(record any) any {
			if t, ok := record.(*T); ok {
				return fn(t)
			}
			return nil
		}
	}
}
