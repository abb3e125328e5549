package metrics

// Config carries the identity labels stamped on every metric.
type Config struct {
	ServiceName string
	Environment string
}
