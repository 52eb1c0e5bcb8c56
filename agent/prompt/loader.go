package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/system.txt
var systemRaw string

// System returns the trimmed system directive seeded at the head of every
// conversation. The embed is compile-time, so this is safe to call
// concurrently.
func System() string {
	return strings.TrimSpace(systemRaw)
}
