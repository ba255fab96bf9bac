package service

import (
	"regexp"
	"strconv"
	"strings"

	"homerank/internal/index"
	"homerank/internal/model"
	"homerank/internal/utils"
)

// cityDistricts is the location vocabulary, in match order.
var cityDistricts = []struct {
	City      string
	Districts []string
}{
	{"北京", []string{"海淀", "朝阳", "东城", "西城", "丰台", "通州"}},
	{"上海", []string{"徐汇", "浦东", "静安", "长宁", "杨浦", "普陀"}},
	{"深圳", []string{"南山", "福田", "罗湖", "宝安", "龙华"}},
}

var (
	priceRegex       = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*\(?\s*万`)
	bedLivingRegex   = regexp.MustCompile(`(\d+)\s*室\s*(\d+)\s*厅`)
	bedRegex         = regexp.MustCompile(`(\d+)\s*(?:室|居)`)
	bedEnglishRegex  = regexp.MustCompile(`(\d+)\s*-?\s*(?:bedrooms?|beds?|br|bhk)\b`)
	areaRegex        = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:平|㎡|m2|m²|sqm)`)
	hanNumeralRegex  = regexp.MustCompile(`([一二两三四五六七八九十])(\s*[室厅卫居])`)
	wordNumeralRegex = regexp.MustCompile(`\b(one|two|three|four|five|six|seven|eight|nine|ten)\b`)
)

var hanNumerals = map[string]string{
	"一": "1", "二": "2", "两": "2", "三": "3", "四": "4",
	"五": "5", "六": "6", "七": "7", "八": "8", "九": "9", "十": "10",
}

var wordNumerals = map[string]string{
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5",
	"six": "6", "seven": "7", "eight": "8", "nine": "9", "ten": "10",
}

// QueryParser extracts structured conditions from free text with a fixed
// set of rules. It holds no state; identical input yields identical output.
type QueryParser struct{}

// NewQueryParser creates a new query parser
func NewQueryParser() *QueryParser {
	return &QueryParser{}
}

// Parse turns query text into conditions. Signals that are not found stay
// unset; Parse never fails.
func (p *QueryParser) Parse(text string) *model.SearchConditions {
	normalized := normalizeNumerals(index.Normalize(text))

	cond := &model.SearchConditions{
		Keywords: utils.MatchKeywords(normalized),
		Raw:      text,
	}

	// "N万" is read as a budget floor.
	if m := priceRegex.FindStringSubmatch(normalized); m != nil {
		cond.MinPrice = parseFloat(m[1])
	}

	if m := bedLivingRegex.FindStringSubmatch(normalized); m != nil {
		cond.BedroomsExact = parseInt(m[1])
		cond.LivingRoomsExact = parseInt(m[2])
	} else if m := bedRegex.FindStringSubmatch(normalized); m != nil {
		cond.BedroomsExact = parseInt(m[1])
	} else if m := bedEnglishRegex.FindStringSubmatch(normalized); m != nil {
		cond.BedroomsExact = parseInt(m[1])
	}

	if m := areaRegex.FindStringSubmatch(normalized); m != nil {
		cond.MinArea = parseFloat(m[1])
	}

	var candidates []string
	for _, entry := range cityDistricts {
		if strings.Contains(normalized, entry.City) {
			city := entry.City
			cond.City = &city
			candidates = entry.Districts
			break
		}
	}
	if cond.City == nil {
		for _, entry := range cityDistricts {
			candidates = append(candidates, entry.Districts...)
		}
	}
	for _, d := range candidates {
		if strings.Contains(normalized, d) {
			cond.Districts = []string{d}
			break
		}
	}

	return cond
}

// normalizeNumerals rewrites Chinese numerals before room units and English
// number words as digits.
func normalizeNumerals(text string) string {
	text = hanNumeralRegex.ReplaceAllStringFunc(text, func(s string) string {
		m := hanNumeralRegex.FindStringSubmatch(s)
		return hanNumerals[m[1]] + m[2]
	})
	return wordNumeralRegex.ReplaceAllStringFunc(text, func(s string) string {
		return wordNumerals[s]
	})
}

func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(s string) *int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
