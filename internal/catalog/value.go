package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Value is a prediction value: either a number or a categorical phrase.
type Value struct {
	number  float64
	text    string
	numeric bool
}

// Number returns a numeric value.
func Number(f float64) Value {
	return Value{number: f, numeric: true}
}

// Text returns a categorical value.
func Text(s string) Value {
	return Value{text: s}
}

func (v Value) IsNumeric() bool { return v.numeric }

// Float returns the numeric value, or 0 for categorical values.
func (v Value) Float() float64 { return v.number }

func (v Value) String() string {
	if v.numeric {
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	}
	return v.text
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.numeric {
		return []byte(strconv.FormatFloat(v.number, 'f', -1, 64)), nil
	}
	return json.Marshal(v.text)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*v = Value{}
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid prediction value %s: %w", raw, err)
	}
	*v = Number(f)
	return nil
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: prediction value must be a scalar", node.Line)
	}
	switch node.Tag {
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid number %q: %w", node.Line, node.Value, err)
		}
		*v = Number(f)
	default:
		*v = Text(node.Value)
	}
	return nil
}
