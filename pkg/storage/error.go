package storage

// NotFoundError is returned when a cache or entry doesn't exist in the store.
type NotFoundError struct {
	Cache string
	URL   string
}

func (e NotFoundError) Error() string {
	switch {
	case e.URL != "":
		return "cache entry not found: " + e.URL
	case e.Cache != "":
		return "cache not found: " + e.Cache
	default:
		return "not found"
	}
}
