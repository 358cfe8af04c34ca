package gradio

import "fmt"

// ArgField names one positional argument of the Space's predict function.
type ArgField string

const (
	ArgPrompt      ArgField = "prompt"
	ArgLanguage    ArgField = "language"
	ArgModel       ArgField = "model"
	ArgMaxTokens   ArgField = "max_tokens"
	ArgTemperature ArgField = "temperature"
)

// DefaultArgLayout matches the ChefGPT Space's fn_index 0 signature.
var DefaultArgLayout = []ArgField{ArgPrompt, ArgModel, ArgMaxTokens, ArgTemperature}

// JoinArgs holds the resolved generation parameters for one job.
type JoinArgs struct {
	Prompt      string
	Language    string
	Model       string
	MaxTokens   int
	Temperature float64
}

// ParseArgLayout validates a layout read from configuration.
func ParseArgLayout(fields []string) ([]ArgField, error) {
	if len(fields) == 0 {
		return DefaultArgLayout, nil
	}
	layout := make([]ArgField, 0, len(fields))
	seen := make(map[ArgField]bool, len(fields))
	for _, f := range fields {
		field := ArgField(f)
		switch field {
		case ArgPrompt, ArgLanguage, ArgModel, ArgMaxTokens, ArgTemperature:
		default:
			return nil, fmt.Errorf("unknown join argument %q", f)
		}
		if seen[field] {
			return nil, fmt.Errorf("duplicate join argument %q", f)
		}
		seen[field] = true
		layout = append(layout, field)
	}
	return layout, nil
}

// encode renders args as the positional "data" array, in layout order.
// Numeric parameters are sent as JSON floats.
func (a JoinArgs) encode(layout []ArgField) []any {
	data := make([]any, 0, len(layout))
	for _, field := range layout {
		switch field {
		case ArgPrompt:
			data = append(data, a.Prompt)
		case ArgLanguage:
			data = append(data, a.Language)
		case ArgModel:
			data = append(data, a.Model)
		case ArgMaxTokens:
			data = append(data, float64(a.MaxTokens))
		case ArgTemperature:
			data = append(data, a.Temperature)
		}
	}
	return data
}

type joinRequest struct {
	FnIndex     int    `json:"fn_index"`
	SessionHash string `json:"session_hash"`
	Data        []any  `json:"data"`
}

type joinResponse struct {
	EventID string `json:"event_id"`
}
