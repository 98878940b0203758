package catalog

import (
	"fmt"
	"strings"
)

// CommentModel is the canonical comment shape every descriptor carries after
// load. The source data spells comment tokens in several shapes (one token or
// a list, one block pair or a list of pairs); they are normalized here once
// so no use site ever branches on shape.
type CommentModel struct {
	Line  []string
	Block []BlockCommentToken
}

type BlockCommentToken struct {
	Start string
	End   string
}

func (m CommentModel) LineToken() (string, bool) {
	if len(m.Line) == 0 {
		return "", false
	}
	return m.Line[0], true
}

func (m CommentModel) BlockToken() (BlockCommentToken, bool) {
	if len(m.Block) == 0 {
		return BlockCommentToken{}, false
	}
	return m.Block[0], true
}

// commentTokens accepts either a bare string or a list of strings.
type commentTokens []string

func (c *commentTokens) UnmarshalTOML(data interface{}) error {
	switch value := data.(type) {
	case string:
		*c = []string{value}
	case []interface{}:
		tokens := make([]string, 0, len(value))
		for _, item := range value {
			token, ok := item.(string)
			if !ok {
				return fmt.Errorf("comment token must be a string, got %T", item)
			}
			tokens = append(tokens, token)
		}
		*c = tokens
	default:
		return fmt.Errorf("comment tokens must be a string or list of strings, got %T", data)
	}
	return nil
}

// blockCommentTokens accepts either a single {start, end} table or a list of
// such tables.
type blockCommentTokens []BlockCommentToken

func (b *blockCommentTokens) UnmarshalTOML(data interface{}) error {
	switch value := data.(type) {
	case map[string]interface{}:
		pair, err := decodeBlockPair(value)
		if err != nil {
			return err
		}
		*b = []BlockCommentToken{pair}
	case []interface{}:
		pairs := make([]BlockCommentToken, 0, len(value))
		for _, item := range value {
			table, ok := item.(map[string]interface{})
			if !ok {
				return fmt.Errorf("block comment entry must be a table, got %T", item)
			}
			pair, err := decodeBlockPair(table)
			if err != nil {
				return err
			}
			pairs = append(pairs, pair)
		}
		*b = pairs
	default:
		return fmt.Errorf("block comment tokens must be a table or list of tables, got %T", data)
	}
	return nil
}

func decodeBlockPair(table map[string]interface{}) (BlockCommentToken, error) {
	start, _ := table["start"].(string)
	end, _ := table["end"].(string)
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return BlockCommentToken{}, fmt.Errorf("block comment pair must define non-empty start and end")
	}
	return BlockCommentToken{Start: start, End: end}, nil
}

func normalizeCommentModel(line commentTokens, block blockCommentTokens) CommentModel {
	model := CommentModel{}
	seen := make(map[string]bool, len(line))
	for _, token := range line {
		token = strings.TrimSpace(token)
		if token == "" || seen[token] {
			continue
		}
		seen[token] = true
		model.Line = append(model.Line, token)
	}
	seenBlock := make(map[BlockCommentToken]bool, len(block))
	for _, pair := range block {
		if seenBlock[pair] {
			continue
		}
		seenBlock[pair] = true
		model.Block = append(model.Block, pair)
	}
	return model
}
