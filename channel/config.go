package channel

import (
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Mqtt struct {
		URL      string `yaml:"url"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Topics   struct {
			Control string `yaml:"control"`
			Frames  string `yaml:"frames"`
		} `yaml:"topics"`
	} `yaml:"mqtt"`
	Channel struct {
		Format     string `yaml:"format"`
		Background string `yaml:"background"`
	} `yaml:"channel"`
}

// ReadConfig loads a YAML config file.
func ReadConfig(path string) (Config, error) {
	var c Config
	f, err := os.Open(path)
	if err != nil {
		return c, err
	}
	defer f.Close()
	err = yaml.NewDecoder(f).Decode(&c)
	return c, err
}
