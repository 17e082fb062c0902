package ports

type RateLimiter interface {
	CheckAndIncrement(key string) (int, error)
	Remaining(key string) int
	Cleanup() int
}
