package api

import (
	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
)

// goJSONSerializer swaps echo's default encoding/json-backed serializer
// for goccy/go-json.
type goJSONSerializer struct{}

func (goJSONSerializer) Serialize(c *echo.Context, i any, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (goJSONSerializer) Deserialize(c *echo.Context, i any) error {
	return json.NewDecoder(c.Request().Body).Decode(i)
}
