package analysis

import (
	"sort"
	"strings"
)

// WordCount is one term and how often it appeared.
type WordCount struct {
	Word  string `json:"word" bson:"word"`
	Count int    `json:"count" bson:"count"`
}

// WordFrequencies tallies terms across repost comments for the word
// cloud. CJK text is counted per character, latin runs per word;
// stopwords and single-letter ASCII tokens are dropped. Output is sorted
// by count descending, ties alphabetically, capped at maxWords.
func WordFrequencies(texts []string, maxWords, minCount int) []WordCount {
	if maxWords <= 0 {
		maxWords = 200
	}
	if minCount <= 0 {
		minCount = 1
	}
	stop := stopwords()
	m := make(map[string]int, 2048)
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" || t == emptyRepostText {
			continue
		}
		for _, tok := range tokenize(t) {
			if tok == "" {
				continue
			}
			if _, ok := stop[tok]; ok {
				continue
			}
			if isASCIIWord(tok) && len(tok) < 2 {
				continue
			}
			m[tok]++
		}
	}

	out := make([]WordCount, 0, len(m))
	for w, c := range m {
		if c < minCount {
			continue
		}
		out = append(out, WordCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if len(out) > maxWords {
		out = out[:maxWords]
	}
	return out
}

func tokenize(s string) []string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	var out []string
	var buf []rune
	inWord := false
	flush := func() {
		if len(buf) > 0 {
			out = append(out, string(buf))
			buf = buf[:0]
		}
		inWord = false
	}
	for _, r := range s {
		switch {
		case isASCIIAlphaNum(r):
			if !inWord {
				flush()
				inWord = true
			}
			buf = append(buf, r)
		case isHan(r):
			flush()
			out = append(out, string(r))
		default:
			flush()
		}
	}
	flush()
	return out
}

func isASCIIAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
}

func isASCIIWord(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}

func isHan(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || (r >= 0x3400 && r <= 0x4DBF)
}

func stopwords() map[string]struct{} {
	words := []string{
		"的", "了", "和", "是", "我", "你", "他", "她", "它", "也", "就", "都", "而", "及", "与", "着", "或",
		"在", "对", "很", "吗", "吧", "啊", "呢", "呀", "哦", "么", "回", "复", "转", "发",
		"the", "a", "an", "and", "or", "to", "of", "in", "on", "for", "is", "are", "it",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
