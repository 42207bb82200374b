package version

import (
	_ "embed" // for go:embed
	"strconv"
	"strings"
)

// VERSION holds the ledger's version
//
//go:embed VERSION
var VERSION string

// Version segments
var (
	MAJOR int
	MINOR int
	FIX   int
	PRE   int
)

func init() {
	VERSION = strings.TrimSpace(VERSION)
	MAJOR, MINOR, FIX, PRE = parse(VERSION)
}

// parse splits a version of the form MAJOR.MINOR.FIX[-prN] into its segments.
// Missing or malformed segments are 0.
func parse(v string) (major, minor, fix, pre int) {
	parts := strings.SplitN(v, ".", 3)
	major, _ = strconv.Atoi(parts[0])
	if len(parts) > 1 {
		minor, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 {
		fixPart, prePart, _ := strings.Cut(parts[2], "-")
		fix, _ = strconv.Atoi(fixPart)
		pre, _ = strconv.Atoi(strings.TrimPrefix(prePart, "pr"))
	}
	return
}

// Banner returns a boxed startup banner with the name and VERSION, at most
// width characters wide. A width <= 0 means no limit.
func Banner(width int) string {
	text := "certledger v" + VERSION
	if width > 0 && len(text)+4 > width {
		return text + "\n"
	}
	line := "+" + strings.Repeat("-", len(text)+2) + "+\n"
	return line + "| " + text + " |\n" + line
}
