package swpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/aurora-watch/internal/domain"
)

const (
	timeTagField = "time_tag"
	kpField      = "kp"
)

// timeTagLayouts are tried in order; SWPC uses the first, the others cover
// ISO variants seen on mirrors.
var timeTagLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// parseJSON reads the planetary K-index forecast product. Two shapes are
// accepted: a table whose first row names the columns, or a list of objects.
// Fields other than time_tag and kp are ignored.
func parseJSON(body []byte) ([]domain.ForecastSample, int, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, 0, fmt.Errorf("decode forecast json: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, nil
	}

	if bytes.HasPrefix(bytes.TrimSpace(rows[0]), []byte("[")) {
		return parseJSONTable(rows)
	}
	return parseJSONObjects(rows)
}

func parseJSONTable(rows []json.RawMessage) ([]domain.ForecastSample, int, error) {
	var header []string
	if err := json.Unmarshal(rows[0], &header); err != nil {
		return nil, 0, fmt.Errorf("decode forecast header: %w", err)
	}
	timeCol, kpCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case timeTagField:
			timeCol = i
		case kpField:
			kpCol = i
		}
	}
	if timeCol < 0 || kpCol < 0 {
		return nil, 0, errors.New("forecast header lacks time_tag or kp column")
	}

	samples := make([]domain.ForecastSample, 0, len(rows)-1)
	skipped := 0
	for _, raw := range rows[1:] {
		var cells []any
		if err := json.Unmarshal(raw, &cells); err != nil || len(cells) <= max(timeCol, kpCol) {
			skipped++
			continue
		}
		s, ok := sampleFromValues(cells[timeCol], cells[kpCol])
		if !ok {
			skipped++
			continue
		}
		samples = append(samples, s)
	}
	return samples, skipped, nil
}

func parseJSONObjects(rows []json.RawMessage) ([]domain.ForecastSample, int, error) {
	samples := make([]domain.ForecastSample, 0, len(rows))
	skipped := 0
	for _, raw := range rows {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			skipped++
			continue
		}
		s, ok := sampleFromValues(obj[timeTagField], obj[kpField])
		if !ok {
			skipped++
			continue
		}
		samples = append(samples, s)
	}
	return samples, skipped, nil
}

func sampleFromValues(timeVal, kpVal any) (domain.ForecastSample, bool) {
	tag, ok := timeVal.(string)
	if !ok {
		return domain.ForecastSample{}, false
	}
	ts, ok := parseTimeTag(tag)
	if !ok {
		return domain.ForecastSample{}, false
	}

	var kp float64
	switch v := kpVal.(type) {
	case float64:
		kp, ok = v, v >= 0
	case string:
		kp, ok = parseKpValue(v)
	default:
		ok = false
	}
	if !ok {
		return domain.ForecastSample{}, false
	}
	return domain.ForecastSample{Time: ts, Kp: kp}, true
}

func parseTimeTag(tag string) (time.Time, bool) {
	tag = strings.TrimSpace(tag)
	for _, layout := range timeTagLayouts {
		if t, err := time.ParseInLocation(layout, tag, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
