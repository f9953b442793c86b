package pandora_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pandora"
)

func ptr[T any](v T) *T { return &v }

func TestParameterValidate(t *testing.T) {
	type testCase struct {
		param *pandora.Parameter
		valid bool
	}

	runTest := func(tc testCase) func(t *testing.T) {
		return func(t *testing.T) {
			err := tc.param.Validate()
			if tc.valid {
				gt.NoError(t, err)
			} else {
				gt.True(t, errors.Is(err, pandora.ErrInvalidParameter))
			}
		}
	}

	t.Run("string", runTest(testCase{
		param: &pandora.Parameter{Type: pandora.TypeString, Enum: []string{"10-K", "10-Q"}},
		valid: true,
	}))
	t.Run("missing type", runTest(testCase{
		param: &pandora.Parameter{},
		valid: false,
	}))
	t.Run("unknown type", runTest(testCase{
		param: &pandora.Parameter{Type: "date"},
		valid: false,
	}))
	t.Run("object without properties", runTest(testCase{
		param: &pandora.Parameter{Type: pandora.TypeObject},
		valid: false,
	}))
	t.Run("object with invalid property", runTest(testCase{
		param: &pandora.Parameter{
			Type:       pandora.TypeObject,
			Properties: map[string]*pandora.Parameter{"x": {Type: pandora.TypeArray}},
		},
		valid: false,
	}))
	t.Run("array", runTest(testCase{
		param: &pandora.Parameter{Type: pandora.TypeArray, Items: &pandora.Parameter{Type: pandora.TypeString}},
		valid: true,
	}))
	t.Run("array without items", runTest(testCase{
		param: &pandora.Parameter{Type: pandora.TypeArray},
		valid: false,
	}))
	t.Run("min greater than max", runTest(testCase{
		param: &pandora.Parameter{Type: pandora.TypeInteger, Minimum: ptr(10.0), Maximum: ptr(1.0)},
		valid: false,
	}))
}

func TestToolSpecJSONSchema(t *testing.T) {
	spec := pandora.ToolSpec{
		Name: "search_financial_docs",
		Parameters: map[string]*pandora.Parameter{
			"query":  {Type: pandora.TypeString, Description: "search query", Required: true},
			"ticker": {Type: pandora.TypeString},
			"limit":  {Type: pandora.TypeInteger, Minimum: ptr(1.0), Maximum: ptr(10.0), Default: 3},
		},
	}

	schema := spec.JSONSchema()
	gt.Equal(t, schema["type"], any("object"))
	gt.Equal(t, schema["required"], any([]string{"query"}))

	props := schema["properties"].(map[string]any)
	gt.Equal(t, len(props), 3)

	query := props["query"].(map[string]any)
	gt.Equal(t, query["type"], any("string"))
	gt.Equal(t, query["description"], any("search query"))

	limit := props["limit"].(map[string]any)
	gt.Equal(t, limit["minimum"], any(1.0))
	gt.Equal(t, limit["maximum"], any(10.0))
	gt.Equal(t, limit["default"], any(3))

	_, hasRequired := (&pandora.ToolSpec{Name: "list"}).JSONSchema()["required"]
	gt.False(t, hasRequired)
}
