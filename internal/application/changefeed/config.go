package changefeed

type Config struct {
	CheckpointName           string `yaml:"checkpoint_name"`
	ReconnectInitialInterval int64  `yaml:"reconnect_initial_interval_in_ms"`
	ReconnectMaxInterval     int64  `yaml:"reconnect_max_interval_in_ms"`
}
