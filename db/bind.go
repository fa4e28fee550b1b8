package db

import (
	"strconv"
	"strings"
)

// BindStyle is the placeholder syntax a driver expects.
type BindStyle int

const (
	// BindAuto resolves the style from the registered Driver.
	BindAuto BindStyle = iota
	// BindQuestion leaves "?" placeholders untouched (SQLite).
	BindQuestion
	// BindDollar rewrites "?" to "$1", "$2", ... (PostgreSQL).
	BindDollar
)

func (b BindStyle) String() string {
	switch b {
	case BindQuestion:
		return "question"
	case BindDollar:
		return "dollar"
	}
	return "auto"
}

// Rebind rewrites the "?" placeholders in query for style. Question marks
// inside quoted literals or identifiers are left alone.
func Rebind(style BindStyle, query string) string {
	if style != BindDollar || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// bindFor looks up the placeholder style of a registered driver.
// Unknown drivers keep "?".
func bindFor(driverName string) BindStyle {
	drv, err := LookupDriver(driverName)
	if err != nil {
		return BindQuestion
	}
	return drv.Bind()
}
