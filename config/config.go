package config

type CodecConfig struct {
	DefaultIssuer    string `env:"MAILCODEC_DEFAULT_ISSUER" envDefault:"example@example.com"`
	DefaultRecipient string `env:"MAILCODEC_DEFAULT_RECIPIENT" envDefault:"example@example.com"`
	GeoJSONEnabled   bool   `env:"MAILCODEC_GEOJSON_ENABLED" envDefault:"true"`
}
