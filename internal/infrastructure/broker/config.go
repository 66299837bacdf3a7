package broker

type Config struct {
	URI        string
	StreamName string `yaml:"stream_name"`
	GroupName  string `yaml:"group_name"`
	BlockTime  int64  `yaml:"block_time_in_ms"`
	ClaimIdle  int64  `yaml:"claim_idle_in_ms"`
	MaxLen     int64  `yaml:"max_len"`
}

type PublisherConfig struct {
	Timeout int `yaml:"timeout_in_ms"`
}
