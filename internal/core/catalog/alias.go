package catalog

import (
	"fmt"

	"glot/internal/core/errors"
)

// maxAliasHops bounds how far a grammar reference may be chased before the
// chain is rejected. Two hops are required (alias of an alias); anything
// deeper than four is treated as a configuration mistake.
const maxAliasHops = 4

// resolveGrammarChains follows every descriptor's grammar reference to a
// terminal concrete grammar id and memoizes the result, so runtime lookup is
// a single map read. Cycles, dangling references, and over-long chains are
// all load-time ConfigErrors naming the offending descriptor.
func (c *Catalog) resolveGrammarChains() error {
	for _, d := range c.descriptors {
		id, err := c.chaseGrammar(d)
		if err != nil {
			return err
		}
		if id != "" {
			c.concreteGrammar[d.Name] = id
		}
	}
	return nil
}

func (c *Catalog) chaseGrammar(d *Descriptor) (string, error) {
	ref := d.Grammar
	if ref == "" {
		ref = d.Name
	}

	visited := map[string]bool{d.Name: true}
	cur := d
	for hop := 0; hop <= maxAliasHops; hop++ {
		if ref == cur.Name {
			// Self-terminating reference: the descriptor owns its grammar.
			if _, ok := c.grammarSources[ref]; ok {
				return ref, nil
			}
			if d.Grammar == "" {
				// No explicit reference and no source entry: the language has
				// no grammar at all (plain text). Not an error.
				return "", nil
			}
			return "", errors.ConfigError(d.Name, "grammar",
				fmt.Sprintf("grammar %q has no source entry", ref))
		}

		next, isLanguage := c.byName[ref]
		if !isLanguage {
			if _, ok := c.grammarSources[ref]; ok {
				return ref, nil
			}
			return "", errors.ConfigError(d.Name, "grammar",
				fmt.Sprintf("grammar reference %q does not exist", ref))
		}
		if visited[next.Name] {
			return "", errors.ConfigError(d.Name, "grammar",
				fmt.Sprintf("grammar alias chain cycles at %q", next.Name))
		}
		visited[next.Name] = true

		cur = next
		ref = cur.Grammar
		if ref == "" {
			ref = cur.Name
		}
	}

	return "", errors.ConfigError(d.Name, "grammar",
		fmt.Sprintf("grammar alias chain exceeds %d hops", maxAliasHops))
}
