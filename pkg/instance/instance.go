package instance

import (
	"fmt"
	"os"

	"github.com/angelmondragon/bakery-backend/pkg/env"
)

// GetID identifies this process in lock values and logs. BAKERY_INSTANCE_ID wins;
// otherwise hostname and pid are combined so replicas on one host stay distinct.
func GetID() string {
	if id := env.Get("INSTANCE_ID", ""); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "bakery"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
