package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCallback splits callback data of the form "<action>:<value>".
func ParseCallback(data string) (action, value string, ok bool) {
	action, value, ok = strings.Cut(data, ":")
	if !ok || action == "" || value == "" {
		return "", "", false
	}
	return action, value, true
}

// ParseID extracts a positive numeric ID.
func ParseID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("search ID is required")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid search ID %q", s)
	}
	return id, nil
}

func searchCallback(action string, id int64) string {
	return action + ":" + strconv.FormatInt(id, 10)
}
