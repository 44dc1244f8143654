package indexer

import (
	"regexp"
	"strings"
)

const equationMaxChars = 800

var (
	crlfPattern      = regexp.MustCompile(`\r\n?`)
	blankRunPattern  = regexp.MustCompile(`\n{3,}`)
	captionPattern   = regexp.MustCompile(`(?i)^\s*(figure|fig\.|table|tbl\.)\s*\d+[.:]`)
	multiSpaceRun    = regexp.MustCompile(`\s{2,}`)
	codeStartPattern = regexp.MustCompile(`(?i)^\s*(def |class |import |from |func |var |const |if |for |while |return|select |insert |update |delete |create |with |#include|//|/\*|\t)`)
	codeEndPattern   = regexp.MustCompile(`[;{}]\s*$`)
	equationSymbols  = regexp.MustCompile(`[=+\-*/^<>≤≥≈∑∏∫√∞αβγδλμσπθ]|\\[a-zA-Z]+`)
)

// NormalizeText unifies line endings and collapses runs of three or more
// newlines (two or more blank lines) down to a single blank line.
func NormalizeText(text string) string {
	text = crlfPattern.ReplaceAllString(text, "\n")
	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// SplitBlocks splits normalized text into coarse blocks on blank-line
// boundaries, dropping empty blocks.
func SplitBlocks(text string) []string {
	parts := strings.Split(text, "\n\n")
	blocks := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			blocks = append(blocks, part)
		}
	}
	return blocks
}

// blockRule pairs a predicate with the label it assigns. Rules are evaluated
// top to bottom with first-match-wins semantics, so precedence lives in the
// ordering of the list, not in control flow.
type blockRule struct {
	label BlockType
	match func(block string) bool
}

var blockRules = []blockRule{
	{BlockCaption, isCaptionBlock},
	{BlockTable, isTableBlock},
	{BlockCode, isCodeBlock},
	{BlockEquation, isEquationBlock},
}

// ClassifyBlock assigns a BlockType to a coarse block. Anything no rule
// claims is prose.
func ClassifyBlock(block string) BlockType {
	for _, rule := range blockRules {
		if rule.match(block) {
			return rule.label
		}
	}
	return BlockText
}

func isCaptionBlock(block string) bool {
	return captionPattern.MatchString(block)
}

// isTableBlock reports whether at least half of the block's lines look
// tabular: pipe-separated cells or two or more runs of multiple spaces.
func isTableBlock(block string) bool {
	lines := strings.Split(block, "\n")
	tabular := 0
	for _, line := range lines {
		if strings.Count(line, "|") >= 2 {
			tabular++
			continue
		}
		if len(multiSpaceRun.FindAllString(strings.TrimSpace(line), -1)) >= 2 {
			tabular++
		}
	}
	return len(lines) > 0 && tabular*2 >= len(lines)
}

// isCodeBlock reports whether at least two lines start like code or SQL, or
// end in a statement terminator.
func isCodeBlock(block string) bool {
	lines := strings.Split(block, "\n")
	codeish := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if codeStartPattern.MatchString(line) || codeEndPattern.MatchString(line) {
			codeish++
		}
	}
	return codeish >= 2
}

// isEquationBlock uses a symbol density heuristic: short blocks where math
// symbols make up a meaningful share of the content.
func isEquationBlock(block string) bool {
	if len(block) >= equationMaxChars {
		return false
	}
	symbols := len(equationSymbols.FindAllString(block, -1))
	if symbols < 2 {
		return false
	}
	words := len(strings.Fields(block))
	if words == 0 {
		return false
	}
	return float64(symbols)/float64(words) >= 0.25
}
