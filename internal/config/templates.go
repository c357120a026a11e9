package config

import (
	"fmt"
	"os"
)

func Template() string {
	return bitsctlTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(bitsctlTemplate), 0o600)
}

const bitsctlTemplate = `[decoder]
max_depth = 1024
max_input_bits = 8388608
hex_mode = "lenient"

[log]
level = "info"
timestamp = true
no_color = false

[metrics]
enabled = false
textfile = ""
`
