package grammars

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/p7/generate"
)

// TestList verifies every built-in grammar is listed in order.
func TestList(t *testing.T) {
	assert.Equal(t, []string{"fun", "imp", "json", "toy"}, List())
}

// TestExamples verifies each built-in grammar compiles and accepts its own
// examples as complete sentences.
func TestExamples(t *testing.T) {
	for _, name := range List() {
		t.Run(name, func(t *testing.T) {
			g, err := Load(name)
			require.NoError(t, err)

			info, err := Get(name)
			require.NoError(t, err)
			require.NotEmpty(t, info.Examples, "grammar %s has no examples", name)
			assert.Equal(t, name, info.Key)

			for _, ex := range info.Examples {
				gen := generate.New(g)
				ok, err := gen.FeedRaw(ex.Text)
				require.NoError(t, err, "example %s", ex.Name)
				require.True(t, ok, "example %s should parse: %q", ex.Name, ex.Text)
				assert.True(t, gen.IsComplete(), "example %s should be complete", ex.Name)
			}
		})
	}
}

// TestIllTyped verifies the typed grammars reject type errors.
func TestIllTyped(t *testing.T) {
	cases := []struct {
		grammar string
		text    string
	}{
		{"toy", "beep:Fizz + boop:Buzz"},
		{"fun", "let x: Int = 1.5; x"},
		{"fun", "let x: Int = 1; x + 2.0"},
		{"fun", "let x: Int = 1; y"},
		{"imp", "x: Int = true;"},
		{"imp", "x: Int = 1; if x < true { }"},
		{"imp", "if true == true { y: Int = 1; } y;"},
	}
	for _, tc := range cases {
		g, err := Load(tc.grammar)
		require.NoError(t, err)
		gen := generate.New(g)

		ok, err := gen.FeedRaw(tc.text)
		assert.False(t, ok, "%s: %q", tc.grammar, tc.text)
		assert.ErrorIs(t, err, generate.ErrTypeReject, "%s: %q", tc.grammar, tc.text)
	}
}

// TestPrefixes verifies incomplete but well-typed prefixes are accepted.
func TestPrefixes(t *testing.T) {
	cases := map[string]string{
		"toy":  "beep:Fizz + bo",
		"json": `{"k": [1, `,
		"fun":  "let x: Int = 1; x +",
		"imp":  "x: Int = 1; while x < 3 {",
	}
	for name, text := range cases {
		g, err := Load(name)
		require.NoError(t, err)
		gen := generate.New(g)

		ok, err := gen.FeedRaw(text)
		require.NoError(t, err, name)
		assert.True(t, ok, "%s: %q", name, text)
		assert.False(t, gen.IsComplete(), name)
	}
}

// TestGet_Unknown verifies unknown names list the available grammars.
func TestGet_Unknown(t *testing.T) {
	_, err := Get("cobol")
	require.ErrorIs(t, err, ErrUnknown)
	assert.Contains(t, err.Error(), "fun, imp, json, toy")

	_, err = Load("cobol")
	require.ErrorIs(t, err, ErrUnknown)
}

// TestDescribe verifies the fallback description of unknown names.
func TestDescribe(t *testing.T) {
	assert.Equal(t, "Toy: Beep Boop", Describe("toy").Name)

	info := Describe("cobol")
	assert.Equal(t, "cobol expressions", info.Short)
	assert.Equal(t, "Grammar: cobol", info.Description)
	assert.Empty(t, info.Spec)
}
