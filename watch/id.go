package watch

import "github.com/google/uuid"

func generateIDWithPrefix(prefix string) string {
	return prefix + "-" + uuid.Must(uuid.NewV7()).String()
}
