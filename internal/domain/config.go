package domain

// Config is the service-level configuration the handlers and usecases need.
type Config struct {
	DefaultVersion  Version `yaml:"defaultVersion"`
	DefaultLanguage string  `yaml:"defaultLanguage"`
	// Concurrency bounds the in-flight taxonomy calls of one sync batch.
	Concurrency int `yaml:"concurrency"`
}
