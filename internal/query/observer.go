package query

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Observer tracks the result of the query for its current key.
// Results for any other key are dropped, so a slow response for a previous
// selection can never overwrite the data of the current one.
type Observer[T any] struct {
	key    Key
	status Status
	data   T
	err    error
}

func (o *Observer[T]) Key() Key {
	return o.key
}

// SetKey moves the observer to key and resets its result. It reports whether
// the key changed. An observer with a key that is not ready stays idle.
func (o *Observer[T]) SetKey(key Key) bool {
	if o.key.Equal(key) {
		return false
	}
	var zero T
	o.key = key
	o.data = zero
	o.err = nil
	o.status = StatusIdle
	if key.Ready() {
		o.status = StatusLoading
	}
	return true
}

// Start marks the current key as loading without dropping previous data.
func (o *Observer[T]) Start() {
	if o.key.Ready() {
		o.status = StatusLoading
		o.err = nil
	}
}

// Resolve applies a result fetched for key. It returns false if key is stale.
func (o *Observer[T]) Resolve(key Key, data T, err error) bool {
	if !o.key.Ready() || !o.key.Equal(key) {
		return false
	}
	if err != nil {
		var zero T
		o.data = zero
		o.err = err
		o.status = StatusError
		return true
	}
	o.data = data
	o.err = nil
	o.status = StatusSuccess
	return true
}

func (o *Observer[T]) Status() Status {
	return o.status
}

func (o *Observer[T]) Data() T {
	return o.data
}

func (o *Observer[T]) Err() error {
	return o.err
}

func (o *Observer[T]) Loading() bool {
	return o.status == StatusLoading
}

func (o *Observer[T]) Success() bool {
	return o.status == StatusSuccess
}

func (o *Observer[T]) Failed() bool {
	return o.status == StatusError
}
