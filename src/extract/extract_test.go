package extract

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFlatten_PriorityKeyIsNotDuplicated(t *testing.T) {
	got := Flatten(map[string]any{"content": "hello world"})
	assert.Equal(t, "hello world", got)
}

func TestFlatten_PriorityOrderThenSortedKeys(t *testing.T) {
	resp := map[string]any{
		"zeta":    "last",
		"summary": "S",
		"alpha":   "first",
		"content": "C",
		"body":    "B",
	}
	assert.Equal(t, "C\nB\nS\nfirst\nlast", Flatten(resp))
}

func TestFlatten_NonStringPriorityValueUsesGenericPass(t *testing.T) {
	resp := map[string]any{"result": 42, "text": "t"}
	assert.Equal(t, "t\n42", Flatten(resp))
}

func TestFlatten_MappingWithNestedValues(t *testing.T) {
	resp := map[string]any{
		"content": "This is the content.",
		"meta":    map[string]any{"author": "x"},
		"rows":    []any{"row1", map[string]any{"t": "nested"}, 3},
	}
	got := Flatten(resp)
	want := "This is the content.\n" +
		"{\n  author: \"x\"\n}\n" +
		"row1\n" +
		"{\n  t: \"nested\"\n}\n" +
		"3"
	assert.Equal(t, want, got)
}

func TestFlatten_TopLevelSequenceRecursesIntoMappings(t *testing.T) {
	resp := []any{
		"first",
		map[string]any{"text": "inner", "id": 7},
		true,
		nil,
	}
	assert.Equal(t, "first\ninner\n7\ntrue\nnull", Flatten(resp))
}

func TestFlatten_Scalars(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"empty string", "", ""},
		{"string", "plain", "plain"},
		{"int", 12, "12"},
		{"float", 1.5, "1.5"},
		{"bool", false, "false"},
		{"empty map", map[string]any{}, ""},
		{"empty slice", []any{}, ""},
		{"error", errors.New("boom"), "boom"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Flatten(tc.in))
		})
	}
}

func TestFlatten_TypedContainers(t *testing.T) {
	assert.Equal(t, "a\nb", Flatten([]string{"a", "b"}))
	assert.Equal(t, "v", Flatten(map[string]string{"content": "v"}))
	assert.Equal(t, "x\ny", Flatten(map[string]any{"items": []string{"x", "y"}}))
}

func TestFlatten_RawJSON(t *testing.T) {
	raw := json.RawMessage(`{"content":"from json","count":3}`)
	assert.Equal(t, "from json\n3", Flatten(raw))

	assert.Equal(t, "not json at all", Flatten([]byte("not json at all")))
	assert.Equal(t, "", Flatten([]byte("   ")))
}

type explodingStringer struct{}

func (explodingStringer) String() string { panic("cannot render") }

func TestFlatten_BadLeavesDegradeAlone(t *testing.T) {
	var link *url.URL
	resp := map[string]any{
		"content": "Important page text.",
		"link":    link,
		"widget":  explodingStringer{},
	}
	var got string
	require.NotPanics(t, func() { got = Flatten(resp) })

	lines := strings.Split(got, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Important page text.", lines[0])
	assert.Equal(t, "<nil>", lines[1])
	assert.Contains(t, lines[2], "cannot render")
}

func TestFlatten_DropsBlankFragments(t *testing.T) {
	resp := map[string]any{"a": "", "b": "  ", "c": "kept"}
	assert.Equal(t, "kept", Flatten(resp))
}

type page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

func TestStringify_Struct(t *testing.T) {
	got := Stringify(page{URL: "https://example.com", Title: "Example"})
	assert.Equal(t, "{\n  title: \"Example\"\n  url: \"https://example.com\"\n}", got)
}

func TestFlatten_Deterministic(t *testing.T) {
	resp := map[string]any{}
	for _, k := range []string{"k1", "k2", "k3", "k4", "k5", "k6", "k7", "k8"} {
		resp[k] = map[string]any{"x": k, "y": []any{1, 2}}
	}
	first := Flatten(resp)
	for i := 0; i < 50; i++ {
		require.Equal(t, first, Flatten(resp))
	}
}

func TestFlattenStableProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOfDistinct(rapid.StringMatching(`[a-z]{1,6}`), func(s string) string { return s }).Draw(t, "keys")
		resp := make(map[string]any, len(keys))
		copyResp := make(map[string]any, len(keys))
		for _, k := range keys {
			v := rapid.String().Draw(t, "value")
			resp[k] = v
			copyResp[k] = v
		}
		if Flatten(resp) != Flatten(copyResp) {
			t.Fatalf("equal mappings flattened differently")
		}
	})
}
