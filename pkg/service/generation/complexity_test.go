package generation_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/support-lab/kotae/pkg/service/generation"
)

func TestComplexity(t *testing.T) {
	t.Run("pure and deterministic", func(t *testing.T) {
		query := "How do I reset my password? I tried the link twice!"
		gt.Number(t, generation.Complexity(query)).Equal(generation.Complexity(query))
	})

	t.Run("always within range", func(t *testing.T) {
		for _, query := range []string{
			"",
			"hi",
			"你好",
			strings.Repeat("a", 1000),
			strings.Repeat("?!", 500),
			strings.Repeat("One sentence. ", 50),
		} {
			score := generation.Complexity(query)
			gt.Number(t, score).GreaterOrEqual(0)
			gt.Number(t, score).LessOrEqual(1)
		}
	})

	t.Run("empty string scores only the base sentence term", func(t *testing.T) {
		// length 0/200 + specials 0/10 + (0 terminators + 1)/5
		gt.Number(t, generation.Complexity("")).Equal(0.2)
	})

	t.Run("length term caps at 0.5", func(t *testing.T) {
		long := strings.Repeat("a", 400)
		// 0.5 length + 0 specials + 0.2 sentence base
		gt.Number(t, generation.Complexity(long)).Equal(0.7)
	})

	t.Run("special characters count once per rune", func(t *testing.T) {
		// 4 runes length, 2 specials, 1 terminator
		// 4/200 + 2/10 + 2/5 = 0.02 + 0.2 + 0.3(capped from 0.4)
		gt.Number(t, generation.Complexity("a@b?")).Equal(0.02 + 0.2 + 0.3)
	})

	t.Run("east asian terminators are counted", func(t *testing.T) {
		// 5 runes, terminator 。 counts as special and as sentence end
		// 5/200 + 1/10 + 2/5 capped to 0.3
		gt.Number(t, generation.Complexity("你好世界。")).Equal(0.025 + 0.1 + 0.3)
	})

	t.Run("underscore and digits are word characters", func(t *testing.T) {
		// 8 runes, no specials, no terminators; the length term is computed
		// through the same division as the implementation to stay bit-exact
		gt.Number(t, generation.Complexity("user_123")).Equal(float64(8)/200 + 0.2)
	})
}
