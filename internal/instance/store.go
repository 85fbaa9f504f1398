package instance

// Store is a durable key-value cache. Get reports a miss with ok == false
// and no error. Both operations are fallible; callers decide whether a
// failure is fatal.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key string, value string) error
}
