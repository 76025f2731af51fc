package config

import "os"

func IsDebug() bool {
	return os.Getenv("BOBBIN_DEBUG") == "1"
}
