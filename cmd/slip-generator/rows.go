package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parseRowIDs parses a comma separated list of 1-based rows and inclusive
// ranges. Order is kept and repeats are allowed. Rows past last, the
// register's last row, are rejected before any range is expanded.
func parseRowIDs(spec string, last int) ([]int, error) {
	var rows []int
	for part := range strings.SplitSeq(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := parseRow(lo, last)
		if err != nil {
			return nil, err
		}
		if !isRange {
			rows = append(rows, first)
			continue
		}
		end, err := parseRow(hi, last)
		if err != nil {
			return nil, err
		}
		if end < first {
			return nil, fmt.Errorf("row range %q runs backwards", part)
		}
		for r := first; r <= end; r++ {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func parseRow(s string, last int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid row %q", s)
	}
	if n < 1 {
		return 0, fmt.Errorf("row %d: rows are 1-based", n)
	}
	if n > last {
		return 0, fmt.Errorf("row %d is past the last register row %d", n, last)
	}
	return n, nil
}
