package catalog

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"glot/internal/core/errors"
)

// Alias graphs are generated as random chains no deeper than the hop bound;
// every member must resolve to the chain's terminal grammar.
func TestRandomAcyclicAliasChainsResolve(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		depth := 1 + rng.Intn(maxAliasHops)

		var sb strings.Builder
		for i := 0; i <= depth; i++ {
			name := fmt.Sprintf("lang%d", i)
			fmt.Fprintf(&sb, "[[language]]\nname = %q\nscope = \"source.%s\"\nfile-types = [\"*.%s\"]\n", name, name, name)
			if i < depth {
				fmt.Fprintf(&sb, "grammar = \"lang%d\"\n", i+1)
			}
		}
		fmt.Fprintf(&sb, "[[grammar]]\nname = \"lang%d\"\nsource = { git = \"https://example.com/g\", rev = \"cafe\" }\n", depth)

		c, err := Parse(sb.String())
		if err != nil {
			t.Fatalf("trial %d (depth %d): %v", trial, depth, err)
		}
		terminal := fmt.Sprintf("lang%d", depth)
		for i := 0; i <= depth; i++ {
			name := fmt.Sprintf("lang%d", i)
			if id, ok := c.GrammarID(name); !ok || id != terminal {
				t.Fatalf("trial %d: GrammarID(%s) = %q, %v; want %s", trial, name, id, ok, terminal)
			}
		}
	}
}

func TestAliasChainExceedingBoundRejected(t *testing.T) {
	depth := maxAliasHops + 2

	var sb strings.Builder
	for i := 0; i <= depth; i++ {
		fmt.Fprintf(&sb, "[[language]]\nname = \"lang%d\"\nscope = \"source.lang%d\"\nfile-types = [\"*.l%d\"]\n", i, i, i)
		if i < depth {
			fmt.Fprintf(&sb, "grammar = \"lang%d\"\n", i+1)
		}
	}
	fmt.Fprintf(&sb, "[[grammar]]\nname = \"lang%d\"\nsource = { git = \"https://example.com/g\", rev = \"cafe\" }\n", depth)

	_, err := Parse(sb.String())
	if err == nil {
		t.Fatal("expected over-long alias chain to be rejected")
	}
	if !errors.IsCode(err, errors.CodeConfig) {
		t.Fatalf("expected CONFIG_ERROR, got %v", err)
	}
	if !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("error should mention the hop bound, got %q", err.Error())
	}
}
