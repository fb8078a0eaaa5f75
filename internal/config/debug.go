package config

import "os"

func IsDebug() bool {
	return os.Getenv("REPLYDESK_DEBUG") == "1"
}
