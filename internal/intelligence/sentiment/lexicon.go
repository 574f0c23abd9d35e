package sentiment

import "strings"

// ---------------------------------------------------------------------------
// Vietnamese sentiment lexicon
// ---------------------------------------------------------------------------

// positiveWords maps Vietnamese terms to positive sentiment weights.
// 1.0 is a standard positive mention, 2.0 a very strong one.
var positiveWords = map[string]float64{
	// General positive
	"tốt":   1.0,
	"hay":   1.0,
	"đẹp":   1.0,
	"nhanh": 1.0,
	"ổn":    0.8,
	"được":  0.5,
	"ok":    0.6,
	"okay":  0.6,

	// Strong positive
	"tuyệt vời": 2.0,
	"xuất sắc":  2.0,
	"hoàn hảo":  2.0,
	"tuyệt hảo": 2.0,
	"rất tốt":   1.5,
	"quá tốt":   1.5,
	"cực tốt":   1.8,

	// Service related
	"uy tín":         1.5,
	"chuyên nghiệp":  1.5,
	"nhiệt tình":     1.5,
	"chu đáo":        1.5,
	"tận tâm":        1.5,
	"lịch sự":        1.2,
	"thân thiện":     1.2,
	"hỗ trợ tốt":     1.5,

	// Quality related
	"chất lượng": 1.0,
	"bền":        1.2,
	"đảm bảo":    1.2,
	"chuẩn":      1.0,
	"chính hãng": 1.3,
	"xịn":        1.2,
	"ngon":       1.0,

	// Price related
	"rẻ":          1.0,
	"hợp lý":      1.2,
	"phải chăng":  1.2,
	"giá tốt":     1.3,
	"tiết kiệm":   1.2,
	"xứng đáng":   1.2,
	"đáng tiền":   1.3,

	// Delivery related
	"đúng hẹn":          1.5,
	"giao nhanh":        1.5,
	"đóng gói tốt":      1.3,
	"đóng gói cẩn thận": 1.5,
	"nguyên vẹn":        1.2,

	// Satisfaction
	"hài lòng":   1.5,
	"thỏa mãn":   1.5,
	"recommend":  1.5,
	"giới thiệu": 1.2,
	"ủng hộ":     1.3,
	"quay lại":   1.3,
	"mua tiếp":   1.3,
	"5 sao":      2.0,
}

// negativeWords maps Vietnamese terms to negative sentiment weights.
var negativeWords = map[string]float64{
	// General negative
	"xấu":  -1.0,
	"tệ":   -1.5,
	"dở":   -1.0,
	"kém":  -1.0,
	"tồi":  -1.2,
	"chán": -1.0,

	// Strong negative
	"thất vọng":  -2.0,
	"rất tệ":     -1.8,
	"quá tệ":     -1.8,
	"cực tệ":     -2.0,
	"kinh khủng": -2.0,
	"tệ hại":     -2.0,
	"lừa đảo":    -2.0,
	"scam":       -2.0,
	"gian lận":   -2.0,

	// Service related
	"không uy tín":         -1.5,
	"thái độ xấu":          -1.5,
	"thiếu chuyên nghiệp":  -1.5,
	"hời hợt":              -1.2,
	"cẩu thả":              -1.5,
	"vô trách nhiệm":       -1.8,

	// Quality related
	"hư":                 -1.5,
	"hỏng":               -1.5,
	"lỗi":                -1.3,
	"khuyết điểm":        -1.0,
	"giả":                -2.0,
	"nhái":               -1.8,
	"kém chất lượng":     -1.5,
	"không đảm bảo":      -1.3,

	// Price related
	"đắt":             -1.0,
	"quá đắt":         -1.5,
	"chặt chém":       -1.8,
	"không đáng tiền": -1.5,
	"phí tiền":        -1.5,

	// Delivery related
	"chậm":        -1.0,
	"trễ":         -1.0,
	"giao chậm":   -1.3,
	"giao trễ":    -1.3,
	"hư hỏng":     -1.5,
	"vỡ":          -1.5,
	"móp":         -1.2,
	"méo":         -1.2,
	"ướt":         -1.3,
	"thiếu hàng":  -1.5,
	"giao sai":    -1.5,
	"đóng gói tệ": -1.5,

	// Dissatisfaction
	"không hài lòng": -1.5,
	"không bao giờ":  -1.5,
	"tức giận":       -1.8,
	"bực mình":       -1.5,
	"1 sao":          -2.0,
}

// ---------------------------------------------------------------------------
// Modifiers
// ---------------------------------------------------------------------------

// intensifiers amplify the sentiment of the word they precede.
var intensifiers = map[string]float64{
	"rất":       1.5,
	"cực kỳ":    1.8,
	"cực":       1.8,
	"vô cùng":   1.8,
	"quá":       1.5,
	"siêu":      1.6,
	"thật sự":   1.3,
	"thực sự":   1.3,
	"hoàn toàn": 1.4,
	"tuyệt đối": 1.5,
	"vô địch":   1.5,
}

// diminishers soften the sentiment of the word they precede.
var diminishers = map[string]float64{
	"hơi":      0.7,
	"một chút": 0.6,
	"chút":     0.6,
	"khá":      0.8,
	"tương đối": 0.8,
	"cũng":     0.7,
	"tạm":      0.6,
}

// negators flip the polarity of the word they precede.  "chưa" is a softer
// negation than the others, so its magnitude is below 1.
var negators = map[string]float64{
	"không": -1.0,
	"chẳng": -1.0,
	"đừng":  -1.0,
	"chưa":  -0.8,
	"hổng":  -1.0,
	"hem":   -1.0,
	"ko":    -1.0,
}

// ---------------------------------------------------------------------------
// Aspect keywords
// ---------------------------------------------------------------------------

// aspectKeywords maps review aspects to the terms that signal them.
var aspectKeywords = map[string][]string{
	"giao_hang": {
		"giao", "ship", "shipping", "giao hàng", "vận chuyển", "nhận hàng",
		"đóng gói", "bọc", "kiện hàng", "shipper", "đơn hàng", "gói hàng",
	},
	"chat_luong": {
		"chất lượng", "hàng", "sản phẩm", "đảm bảo", "chuẩn", "xịn",
		"bền", "chính hãng", "nguyên liệu", "vật liệu", "hư", "hỏng",
	},
	"gia_ca": {
		"giá", "rẻ", "đắt", "hợp lý", "phải chăng", "tiền", "chi phí",
		"giá cả", "mức giá", "báo giá", "thanh toán",
	},
	"dich_vu": {
		"nhân viên", "tư vấn", "hỗ trợ", "thái độ", "nhiệt tình",
		"chăm sóc", "phục vụ", "support", "cskh", "chuyên nghiệp",
	},
	"thoi_gian": {
		"nhanh", "chậm", "đúng hẹn", "trễ", "kịp", "thời gian",
		"ngày", "giờ", "hôm", "tuần",
	},
}

// wordSentiment returns the lexicon weight for word and whether the entry is
// positive.  Unknown words return (0, false).
func wordSentiment(word string) (value float64, positive bool) {
	w := strings.ToLower(strings.TrimSpace(word))
	if v, ok := positiveWords[w]; ok {
		return v, true
	}
	if v, ok := negativeWords[w]; ok {
		return v, false
	}
	return 0, false
}

type modifierKind int

const (
	modifierNone modifierKind = iota
	modifierIntensifier
	modifierDiminisher
	modifierNegator
)

// modifierValue classifies word as a sentiment modifier.  Words that are not
// modifiers return (modifierNone, 1).
func modifierValue(word string) (modifierKind, float64) {
	w := strings.ToLower(strings.TrimSpace(word))
	if v, ok := intensifiers[w]; ok {
		return modifierIntensifier, v
	}
	if v, ok := diminishers[w]; ok {
		return modifierDiminisher, v
	}
	if v, ok := negators[w]; ok {
		return modifierNegator, v
	}
	return modifierNone, 1
}

// detectAspect returns the first aspect whose keyword appears in text, or ""
// when no aspect matches.  Aspects are checked in a fixed order so detection
// is deterministic.
func detectAspect(text string) string {
	lower := strings.ToLower(text)
	for _, aspect := range aspectOrder {
		for _, keyword := range aspectKeywords[aspect] {
			if strings.Contains(lower, keyword) {
				return aspect
			}
		}
	}
	return ""
}

// aspectOrder fixes the iteration order over aspectKeywords.
var aspectOrder = []string{"giao_hang", "chat_luong", "gia_ca", "dich_vu", "thoi_gian"}
