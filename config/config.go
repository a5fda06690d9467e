package config

type Config struct {
	Running struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"running"`
	Mysql struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"mysql"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`
	Auth struct {
		// 留空走本地 JWT 校验，填远端地址走 /v1/auth/verify
		Path string `mapstructure:"path"`
	} `mapstructure:"auth"`
	Collab struct {
		FlushDebounceMs int `mapstructure:"flush_debounce_ms"`
		SendQueueSize   int `mapstructure:"send_queue_size"`
	} `mapstructure:"collab"`
}
