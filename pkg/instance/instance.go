package instance

import "github.com/angelmondragon/printbridge-backend/pkg/env"

// ID identifies this process in logs when several publishers drain the same outbox.
func ID(kind string) string {
	return env.Get("PRINTBRIDGE_INSTANCE_ID", kind+"-0")
}
