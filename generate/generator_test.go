package generate

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/p7/ebnf/grammar"
	"github.com/dhamidi/p7/regex"
	"github.com/dhamidi/p7/typing"
)

const pairGrammar = `S = "a" "b" .`

const toyGrammar = `
@start Expr
@type Value Type
@type Type text
@same Expr

Expr = Value { "+" Value } .
Value = atom ":" Type .
Type = ident .
atom = "beep" | "boop" .
ident = upper { lower } .
upper = "A" … "Z" .
lower = "a" … "z" .
`

func mustLoad(t *testing.T, spec string) grammar.Grammar {
	t.Helper()
	g, err := grammar.Load(spec)
	require.NoError(t, err)
	return g
}

// feedAll feeds tokens one by one and fails the test on any rejection.
func feedAll(t *testing.T, g *Generator, tokens ...string) {
	t.Helper()
	for _, tok := range tokens {
		ok, err := g.Feed(tok)
		require.NoError(t, err, "feed %q", tok)
		require.True(t, ok, "feed %q", tok)
	}
}

// TestFeed_TwoTokens feeds a two token sentence and watches the state.
func TestFeed_TwoTokens(t *testing.T) {
	gen := New(mustLoad(t, pairGrammar))
	assert.Equal(t, StateEmpty, gen.State())

	ok, err := gen.Feed("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", gen.CurrentText())
	assert.False(t, gen.IsComplete())
	assert.Equal(t, StatePartial, gen.State())

	ok, err = gen.Feed("b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a b", gen.CurrentText())
	assert.True(t, gen.IsComplete())
	assert.Equal(t, StateComplete, gen.State())
}

// TestFeed_SyntaxReject verifies unparseable text is refused without error.
func TestFeed_SyntaxReject(t *testing.T) {
	gen := New(mustLoad(t, pairGrammar))

	ok, err := gen.Feed("b")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "", gen.CurrentText())

	feedAll(t, gen, "a")
	for _, tok := range []string{"a", "c", "b b"} {
		ok, err := gen.Feed(tok)
		require.NoError(t, err)
		assert.False(t, ok, "feed %q", tok)
		assert.Equal(t, "a", gen.CurrentText(), "failed feed must not change the text")
	}
}

// TestFeed_TypeReject verifies a parseable but ill-typed text is an error.
func TestFeed_TypeReject(t *testing.T) {
	gen := New(mustLoad(t, toyGrammar))
	feedAll(t, gen, "beep:Fizz", "+")

	ok, err := gen.Feed("boop:Buzz")
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrTypeReject)
	assert.Equal(t, "beep:Fizz +", gen.CurrentText())

	feedAll(t, gen, "boop:Fizz")
	assert.True(t, gen.IsComplete())
}

// TestFeedRaw verifies raw feeding concatenates without a separator.
func TestFeedRaw(t *testing.T) {
	gen := New(mustLoad(t, toyGrammar))
	for _, piece := range []string{"be", "ep", ":F", "i"} {
		ok, err := gen.FeedRaw(piece)
		require.NoError(t, err)
		require.True(t, ok, "feed %q", piece)
	}
	assert.Equal(t, "beep:Fi", gen.CurrentText())

	ok, err := gen.FeedRaw("!")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "beep:Fi", gen.CurrentText())
}

// TestCheckCompletion_Idempotent verifies checks never change the session.
func TestCheckCompletion_Idempotent(t *testing.T) {
	gen := New(mustLoad(t, toyGrammar))
	feedAll(t, gen, "beep:Fizz")

	for i := 0; i < 3; i++ {
		assert.True(t, gen.CheckCompletion(" + boop:Fizz"))
		assert.False(t, gen.CheckCompletion(" + boop:Buzz"))
		assert.False(t, gen.CheckCompletion(" :"))
		assert.Equal(t, "beep:Fizz", gen.CurrentText())
	}

	got := gen.FilterCompletions([]string{" + boop:Buzz", "zz", " +", "!"})
	assert.Equal(t, []string{"zz", " +"}, got)
	assert.Equal(t, "beep:Fizz", gen.CurrentText())
}

// TestResetAndClone verifies sessions can restart and branch.
func TestResetAndClone(t *testing.T) {
	gen := New(mustLoad(t, toyGrammar))
	feedAll(t, gen, "beep:Fizz")

	branch := gen.Clone()
	assert.NotEqual(t, gen.ID(), branch.ID())
	assert.Equal(t, gen.CurrentText(), branch.CurrentText())

	feedAll(t, branch, "+", "boop:Fizz")
	assert.Equal(t, "beep:Fizz", gen.CurrentText(), "feeding a clone must not change the original")

	gen.Reset()
	assert.Equal(t, "", gen.CurrentText())
	assert.Equal(t, StateEmpty, gen.State())
	assert.Equal(t, "beep:Fizz + boop:Fizz", branch.CurrentText())
}

// TestContext verifies context variables are in scope for type checking.
func TestContext(t *testing.T) {
	g := mustLoad(t, `
		@use Var
		@same Sum
		@type Number "Int"

		Sum = Atom { "+" Atom } .
		Atom = Var | Number .
		Var = name .
		Number = digit { digit } .
		name = "a" … "z" { "a" … "z" } .
		digit = "0" … "9" .
	`)

	plain := New(g)
	_, err := plain.Feed("n +")
	require.ErrorIs(t, err, ErrTypeReject)

	ctx := typing.NewContext()
	ctx.Bind("n", typing.Type{Name: "Int"})
	scoped := New(g, WithContext(ctx))
	feedAll(t, scoped, "n", "+", "1")
	assert.True(t, scoped.IsComplete())
}

// TestCompletions lists what may follow the text.
func TestCompletions(t *testing.T) {
	gen := New(mustLoad(t, toyGrammar))
	feedAll(t, gen, "beep:Fizz")

	completions := gen.Completions()
	assert.Contains(t, completions, "+")
	assert.Contains(t, completions, "[a-z]*", "the open identifier may continue")

	patterns := gen.ValidPatterns()
	assert.Len(t, patterns, len(completions))

	feedAll(t, gen, "+")
	info := gen.DebugCompletions()
	require.Len(t, info.Patterns, 1)
	assert.Empty(t, info.Examples)
	re, err := regex.Compile(info.Patterns[0])
	require.NoError(t, err)
	assert.True(t, re.Matches("boop"))
}

// TestTokenMask_AgreesWithIndices checks mask, indices and any-valid agree.
func TestTokenMask_AgreesWithIndices(t *testing.T) {
	gen := New(mustLoad(t, toyGrammar))
	vocab := []string{"+", " +", "zz", "Z", ":", " boop", "+ boop:Fizz", ""}

	for _, prefix := range []string{"", "beep", "beep:Fizz", "beep:Fizz +"} {
		gen.Reset()
		if prefix != "" {
			ok, err := gen.FeedRaw(prefix)
			require.NoError(t, err)
			require.True(t, ok)
		}

		mask := gen.TokenMask(vocab)
		indices := gen.ValidTokenIndices(vocab)
		var fromMask []int
		for i, ok := range mask {
			if ok {
				fromMask = append(fromMask, i)
			}
		}
		assert.Equal(t, fromMask, indices, "after %q", prefix)
		assert.Equal(t, len(indices) > 0, gen.AnyValidToken(vocab), "after %q", prefix)
		for i, tok := range vocab {
			assert.Equal(t, mask[i], gen.IsValidNext(tok), "IsValidNext(%q) after %q", tok, prefix)
		}
	}

	gen.Reset()
	feedAll(t, gen, "beep:Fizz")
	assert.Equal(t, []int{0, 1, 2, 6}, gen.ValidTokenIndices(vocab))
}

// TestFilterCompletionIndices verifies the typed pass removes ill-typed
// candidates and never adds any.
func TestFilterCompletionIndices(t *testing.T) {
	gen := New(mustLoad(t, toyGrammar))
	feedAll(t, gen, "beep:Fizz", "+")
	vocab := []string{" boop:Fizz", " boop:Buzz", " boop:Fi", " beep", "+"}

	cheap := gen.ValidTokenIndices(vocab)
	assert.Equal(t, []int{0, 1, 2, 3}, cheap)

	strict := gen.FilterCompletionIndices(vocab)
	assert.Equal(t, []int{0, 2, 3}, strict)
	assert.Subset(t, cheap, strict)
	assert.Equal(t, "beep:Fizz +", gen.CurrentText())
}

// TestSExpr_RequiresValidTree verifies serialization needs a complete Valid
// tree.
func TestSExpr_RequiresValidTree(t *testing.T) {
	gen := New(mustLoad(t, toyGrammar))
	feedAll(t, gen, "beep:Fizz", "+")

	_, err := gen.ToSExpr()
	require.ErrorIs(t, err, ErrUsage)

	feedAll(t, gen, "boop:Fi")
	_, err = gen.ToSExpr()
	require.ErrorIs(t, err, ErrUsage, "a complete tree typed Partial is not enough")

	gen.Reset()
	feedAll(t, gen, "beep:Fizz")
	got, err := gen.ToSExpr()
	require.NoError(t, err)
	assert.Equal(t, `(Expr (Value (atom "beep") ":" (Type (ident "Fizz"))))`, got)

	compact, err := gen.ToSExprCompact()
	require.NoError(t, err)
	assert.Equal(t, got, compact)
}

// TestWellTypedTreeCount counts the trees that type check.
func TestWellTypedTreeCount(t *testing.T) {
	gen := New(mustLoad(t, toyGrammar))
	assert.Equal(t, 0, gen.WellTypedTreeCount())

	feedAll(t, gen, "beep:Fizz")
	assert.Equal(t, 1, gen.WellTypedTreeCount())
}

const segmentGrammar = `
@start S
@type Head %s
@type One "A"
@type Two "B"
@same S

S = Head Item { Item } .
Item = One | Two .
One = "x" .
Two = "x" "x" .
Head = "h" .
`

func segments(n int) string {
	return "h" + strings.Repeat(" x", n)
}

// TestFeedRaw_ManyDerivations verifies the one well-typed reading of a text
// with many ill-typed readings is found.
func TestFeedRaw_ManyDerivations(t *testing.T) {
	for _, n := range []int{8, 14} {
		gen := New(mustLoad(t, fmt.Sprintf(segmentGrammar, `"A"`)))
		ok, err := gen.FeedRaw(segments(n))
		require.NoError(t, err, "%d segments", n)
		require.True(t, ok, "%d segments", n)
		assert.True(t, gen.IsComplete())
		assert.Equal(t, 1, gen.WellTypedTreeCount())

		out, err := gen.ToSExpr()
		require.NoError(t, err)
		assert.Equal(t, n, strings.Count(out, "(One"))
		assert.NotContains(t, out, "(Two")
	}

	gen := New(mustLoad(t, fmt.Sprintf(segmentGrammar, `"B"`)))
	feedAll(t, gen, segments(8))
	assert.True(t, gen.IsComplete())

	out, err := gen.ToSExpr()
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(out, "(Two"))
	assert.NotContains(t, out, "(One")
}

// TestFeedRaw_TooManyDerivations verifies a text whose readings cannot all
// be checked is refused with ErrAmbiguous rather than ErrTypeReject.
func TestFeedRaw_TooManyDerivations(t *testing.T) {
	gen := New(mustLoad(t, fmt.Sprintf(segmentGrammar, `"C"`)))

	ok, err := gen.FeedRaw(segments(30))
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrAmbiguous)
	assert.NotErrorIs(t, err, ErrTypeReject)
	assert.Equal(t, "", gen.CurrentText())

	ok, err = gen.FeedRaw(segments(3))
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrTypeReject)
}

// TestWellTypedTreeCount_Ambiguous counts only the readings that type check.
func TestWellTypedTreeCount_Ambiguous(t *testing.T) {
	gen := New(mustLoad(t, `
		@start S
		@type Head "A"
		@type One "A"
		@type Two "A"
		@type Three "B"
		@same S

		S = Head Item { Item } .
		Item = One | Two | Three .
		One = "x" .
		Two = "x" "x" .
		Three = "x" "x" .
		Head = "h" .
	`))
	feedAll(t, gen, "h x x")

	// One One, Two, and One followed by an unfinished Two.
	assert.Equal(t, 3, gen.WellTypedTreeCount())
	assert.True(t, gen.IsComplete())

	_, err := gen.ToSExpr()
	require.NoError(t, err)
}

// TestFeedRaw_InvalidUTF8 verifies a stray byte is lexed as one character.
func TestFeedRaw_InvalidUTF8(t *testing.T) {
	gen := New(mustLoad(t, `
		S = word "a" .
		word = other { other } .
		other = "b" … "\U0010FFFF" .
	`))

	var ok bool
	var err error
	require.NotPanics(t, func() { ok, err = gen.FeedRaw("\xffa") })
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, gen.IsComplete())
	assert.Equal(t, "\xffa", gen.CurrentText())
}

type countingObserver struct {
	mu          sync.Mutex
	validations map[Outcome]int
	masks       int
}

func (o *countingObserver) ObserveValidation(outcome Outcome, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.validations[outcome]++
}

func (o *countingObserver) ObserveMask(_, _ int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.masks++
}

// TestObserver verifies validations and masks are reported.
func TestObserver(t *testing.T) {
	obs := &countingObserver{validations: make(map[Outcome]int)}
	gen := New(mustLoad(t, toyGrammar), WithObserver(obs))

	feedAll(t, gen, "beep:Fizz", "+")
	_, _ = gen.Feed("boop:Buzz")
	_, _ = gen.Feed("!")
	gen.TokenMask([]string{"a"})

	assert.Equal(t, 2, obs.validations[Accept])
	assert.Equal(t, 1, obs.validations[TypeReject])
	assert.Equal(t, 1, obs.validations[SyntaxReject])
	assert.Equal(t, 1, obs.masks)
}
