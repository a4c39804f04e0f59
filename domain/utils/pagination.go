package utils

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// NormalizePage clamps a requested page and limit. Pages below 1 become 1, a
// non-positive limit becomes the default and limits above the maximum are capped.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// PageCount returns ceil(total/limit)
func PageCount(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
