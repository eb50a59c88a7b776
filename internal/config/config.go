package config

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	Gateway  Gateway  `envPrefix:"GATEWAY_"`
	AMQP     AMQP     `envPrefix:"AMQP_"`
	Download Download `envPrefix:"DOWNLOAD_"`
	Auth     Auth     `envPrefix:"AUTH_"`
}

type Gateway struct {
	BaseApiURL     string `env:"BASE_API_URL"`
	ClientID       string `env:"CLIENT_ID"`
	ClientSecret   string `env:"CLIENT_SECRET"`
	CallbackSecret string `env:"CALLBACK_SECRET"`
}

type AMQP struct {
	// empty URL disables the broker, notifications fall back to the log
	URL string `env:"URL"`
}

type Download struct {
	// symmetric key for product file location encryption
	LinkKey string `env:"LINK_KEY"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
