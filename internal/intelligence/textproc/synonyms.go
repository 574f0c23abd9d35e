package textproc

import (
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Synonym expansion
// ---------------------------------------------------------------------------

// SynonymTable maps a canonical construction-material term to its variants:
// trade names, English equivalents, and common misspellings.
type SynonymTable map[string][]string

// DefaultSynonyms is the built-in construction-materials synonym table.
var DefaultSynonyms = SynonymTable{
	// Materials
	"chịu lửa": {"chịu nhiệt", "refractory", "samot", "chống cháy"},
	"thép":     {"sắt", "steel", "inox", "thép không gỉ"},
	"xi măng":  {"cement", "ximang", "xm", "bê tông"},
	"gạch":     {"brick", "gạch ống", "gạch đặc", "gạch không nung"},
	"cát":      {"sand", "cát vàng", "cát xây", "cát đen"},
	"đá":       {"stone", "đá dăm", "đá 1x2", "đá 4x6"},
	"sơn":      {"paint", "sơn nước", "sơn dầu", "sơn phủ"},

	// Properties
	"rẻ":         {"giá rẻ", "tiết kiệm", "phải chăng", "giá tốt", "rẻ tiền"},
	"tốt":        {"chất lượng", "bền", "đảm bảo", "uy tín"},
	"chống thấm": {"waterproof", "không thấm nước", "chịu nước"},

	// Brand shortcuts
	"holcim":   {"xi măng holcim", "pcb40"},
	"hoa sen":  {"thép hoa sen", "tôn hoa sen"},
	"hoà phát": {"thép hoà phát", "hoa phat"},
	"vicem":    {"xi măng vicem", "hà tiên"},

	// Common misspellings
	"ximang": {"xi măng"},
	"gach":   {"gạch"},
	"thep":   {"thép"},
	"son":    {"sơn"},
}

// ExpandQuery returns query plus every variant produced by substituting known
// synonym terms.  The original query is always first; the remainder is sorted
// for deterministic output.  Substitution operates on the lower-cased query.
func (s SynonymTable) ExpandQuery(query string) []string {
	queryLower := strings.ToLower(query)
	seen := map[string]struct{}{query: {}}
	var variants []string

	for term, synonyms := range s {
		if !strings.Contains(queryLower, term) {
			continue
		}
		for _, syn := range synonyms {
			expanded := strings.ReplaceAll(queryLower, term, syn)
			if _, dup := seen[expanded]; dup {
				continue
			}
			seen[expanded] = struct{}{}
			variants = append(variants, expanded)
		}
	}

	sort.Strings(variants)
	return append([]string{query}, variants...)
}
