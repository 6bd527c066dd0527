package instance

import "github.com/angelmondragon/newsapi-backend/pkg/env"

// GetID identifies the running process in logs: the platform dyno name when
// present, then NEWSAPI_INSTANCE_ID, then fallback.
func GetID(fallback string) string {
	return env.First(fallback, "DYNO", "NEWSAPI_INSTANCE_ID")
}
