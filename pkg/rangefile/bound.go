package rangefile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ParseBound reads a range bound: a number of seconds or an RFC 3339
// timestamp, which becomes Unix seconds with a fractional part.
func ParseBound(text string) (float64, error) {
	text = strings.TrimSpace(text)

	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return v, nil
	}

	ts, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is neither a number nor an RFC 3339 time", ErrBadBound, text)
	}

	return float64(ts.Unix()) + float64(ts.Nanosecond())/float64(time.Second), nil
}

// bound decodes from a YAML scalar or a JSON number or string.
type bound float64

func (b *bound) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: expected a scalar", ErrBadBound, node.Line)
	}

	v, err := ParseBound(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}

	*b = bound(v)

	return nil
}

func (b *bound) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*b = bound(num)

		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("%w: %s", ErrBadBound, data)
	}

	v, err := ParseBound(text)
	if err != nil {
		return err
	}

	*b = bound(v)

	return nil
}
