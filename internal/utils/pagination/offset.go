package pagination

// Normalize clamps a requested page to sane bounds.
// limit <= 0 becomes defaultLimit, limit above maxLimit is capped, and a
// negative offset starts at the first item.
func Normalize(limit, offset, defaultLimit, maxLimit int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Window returns the [start, end) slice bounds of a page over total items.
// more tells whether anything follows end; truncated marks a total that is
// only a prefix of the full list, so there may be more even at the end.
func Window(total, offset, limit int, truncated bool) (start, end int, more bool) {
	start = min(offset, total)
	end = min(start+limit, total)
	more = end < total || truncated
	return start, end, more
}
