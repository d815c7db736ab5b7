package swpc

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/aurora-watch/internal/domain"
)

var (
	// issuedRe matches the product issue line, e.g. ":Issued: 2024 Oct 18 0030 UTC".
	issuedRe = regexp.MustCompile(`^:Issued:\s+(\d{4})\s`)

	// breakdownRe matches the Kp table title, e.g.
	// "NOAA Kp index breakdown Oct 18-Oct 20 2024" -> Oct, Oct, 2024.
	breakdownRe = regexp.MustCompile(`(?i)^NOAA Kp index breakdown\s+([A-Z][a-z]{2})\s+\d{1,2}\s*-\s*([A-Z][a-z]{2})\s+\d{1,2}\s+(\d{4})`)

	// dayRe matches one column heading of the Kp table, e.g. "Oct 18".
	dayRe = regexp.MustCompile(`([A-Z][a-z]{2})\s+(\d{1,2})`)

	// blockRe matches a 3-hour UTC block label, e.g. "21-00UT".
	blockRe = regexp.MustCompile(`^(\d{2})-(\d{2})UT$`)

	// tokenRe matches one whitespace-separated field of a table row.
	tokenRe = regexp.MustCompile(`\S+`)

	// scaleRe matches a NOAA G-scale annotation following a Kp value, e.g. "(G2)".
	scaleRe = regexp.MustCompile(`^\(G\d\)$`)
)

var errNoKpTable = errors.New("kp index breakdown not found")

// Parse extracts Kp samples from a SWPC payload, detecting the format from its
// first non-space byte: JSON for '[' or '{', the 3-Day Forecast text otherwise.
// skipped counts records or cells that were malformed and dropped. The
// returned samples are in payload order; callers normalize them.
func Parse(body []byte) (samples []domain.ForecastSample, skipped int, err error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, 0, errors.New("empty forecast body")
	}
	switch trimmed[0] {
	case '[', '{':
		return parseJSON(trimmed)
	default:
		return parseText(string(trimmed))
	}
}

// parseText reads the "NOAA Kp index breakdown" table of the 3-Day Forecast.
// The year is taken from the :Issued: line, which dates the first column. When
// that line is absent the breakdown title's year is used; the title carries
// the year of its last day, so a Dec-Jan title starts in the year before.
func parseText(body string) ([]domain.ForecastSample, int, error) {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")

	issuedYear := 0
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if m := issuedRe.FindStringSubmatch(line); m != nil {
			issuedYear, _ = strconv.Atoi(m[1])
			continue
		}

		m := breakdownRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		year := issuedYear
		if year == 0 {
			year = breakdownStartYear(m[1], m[2], m[3])
		}
		return parseKpTable(lines[i+1:], year)
	}
	return nil, 0, errNoKpTable
}

func breakdownStartYear(fromMonth, toMonth, year string) int {
	y, _ := strconv.Atoi(year)
	from, errF := time.Parse("Jan", fromMonth)
	to, errT := time.Parse("Jan", toMonth)
	if errF == nil && errT == nil && from.Month() > to.Month() {
		return y - 1
	}
	return y
}

// kpColumn is one day of the Kp table and the character offset of its heading.
type kpColumn struct {
	day    time.Time
	center int
}

// parseKpTable reads the column heading line and the block rows that follow
// it, up to the first blank line after a row. Rows with an unreadable label
// are skipped whole; unreadable or missing cells are skipped individually.
func parseKpTable(lines []string, year int) ([]domain.ForecastSample, int, error) {
	var cols []kpColumn
	var samples []domain.ForecastSample
	skipped := 0
	seenRow := false

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		if cols == nil {
			if line == "" {
				continue
			}
			cols = parseDayHeading(raw, year)
			if len(cols) == 0 {
				return nil, 0, fmt.Errorf("kp table: unreadable day heading %q", line)
			}
			continue
		}

		if line == "" {
			if seenRow {
				break
			}
			continue
		}
		seenRow = true

		hour, cells, ok := parseRow(raw, cols)
		if !ok {
			skipped++
			continue
		}
		for i, cell := range cells {
			kp, ok := parseKpValue(cell)
			if !ok {
				skipped++
				continue
			}
			samples = append(samples, domain.ForecastSample{
				Time: cols[i].day.Add(time.Duration(hour) * time.Hour),
				Kp:   kp,
			})
		}
	}

	if cols == nil {
		return nil, 0, errors.New("kp table: missing day heading")
	}
	return samples, skipped, nil
}

// parseRow splits a block row into its start hour and one cell per column.
// A full row is read left to right. A short or crowded row is aligned by
// character position under the headings, leaving "" for cells that are
// missing or cannot be placed, so no value is ever moved to another day.
func parseRow(raw string, cols []kpColumn) (hour int, cells []string, ok bool) {
	spans := tokenRe.FindAllStringIndex(raw, -1)
	if len(spans) == 0 {
		return 0, nil, false
	}
	hour, ok = parseBlockStart(raw[spans[0][0]:spans[0][1]])
	if !ok {
		return 0, nil, false
	}

	values := make([][]int, 0, len(spans)-1)
	for _, sp := range spans[1:] {
		if !scaleRe.MatchString(raw[sp[0]:sp[1]]) {
			values = append(values, sp)
		}
	}

	cells = make([]string, len(cols))
	if len(values) == len(cols) {
		for i, sp := range values {
			cells[i] = raw[sp[0]:sp[1]]
		}
		return hour, cells, true
	}

	taken := make([]int, len(cols))
	for _, sp := range values {
		i := nearestColumn(cols, (sp[0]+sp[1])/2)
		taken[i]++
		cells[i] = raw[sp[0]:sp[1]]
	}
	for i, n := range taken {
		if n > 1 {
			cells[i] = ""
		}
	}
	return hour, cells, true
}

func nearestColumn(cols []kpColumn, pos int) int {
	best := 0
	for i := range cols {
		if abs(cols[i].center-pos) < abs(cols[best].center-pos) {
			best = i
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// parseDayHeading turns "Oct 18  Oct 19  Oct 20" into UTC midnights, keeping
// where each heading sits in the line. A month earlier than the first
// column's month belongs to the following year.
func parseDayHeading(line string, year int) []kpColumn {
	matches := dayRe.FindAllStringSubmatchIndex(line, -1)
	cols := make([]kpColumn, 0, len(matches))
	var firstMonth time.Month
	for _, m := range matches {
		d, err := time.Parse("Jan 2 2006", fmt.Sprintf("%s %s %d", line[m[2]:m[3]], line[m[4]:m[5]], year))
		if err != nil {
			return nil
		}
		if len(cols) == 0 {
			firstMonth = d.Month()
		} else if d.Month() < firstMonth {
			d = d.AddDate(1, 0, 0)
		}
		cols = append(cols, kpColumn{day: d.UTC(), center: (m[0] + m[1]) / 2})
	}
	return cols
}

// parseBlockStart returns the starting hour of a "HH-HHUT" label.
func parseBlockStart(label string) (int, bool) {
	m := blockRe.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}
	start, errS := strconv.Atoi(m[1])
	end, errE := strconv.Atoi(m[2])
	if errS != nil || errE != nil || start > 23 || end > 24 {
		return 0, false
	}
	return start, true
}

// parseKpValue accepts a finite, non-negative decimal.
func parseKpValue(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
