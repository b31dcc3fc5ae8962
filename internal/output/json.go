package output

import (
	"encoding/json"

	"github.com/stocklens/stocklens/internal/render"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

type jsonResult struct {
	*Result
	Links []render.Link `json:"links"`
}

// Format renders a result as JSON, including the renderable links.
func (f *JSONFormatter) Format(result *Result) (string, error) {
	if result == nil {
		return "", nil
	}

	payload := jsonResult{Result: result, Links: result.Links()}

	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(payload, "", "  ")
	} else {
		data, err = json.Marshal(payload)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
