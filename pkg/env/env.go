package env

import "os"

// Get reads an environment variable, falling back when it is unset or
// empty. Used for knobs needed before the config layer is up, such as
// the log format.
func Get(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
