package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// cctvNames maps a CCTV channel number to its descriptive suffix.
var cctvNames = map[string]string{
	"1": "综合", "2": "财经", "3": "综艺", "4": "中文国际",
	"5": "体育", "5+": "体育赛事", "6": "电影", "7": "国防军事",
	"8": "电视剧", "9": "纪录", "10": "科教", "11": "戏曲",
	"12": "社会与法", "13": "新闻", "14": "少儿", "15": "音乐",
	"16": "奥林匹克", "17": "农业农村",
}

type cctvEntry struct {
	re   *regexp.Regexp
	name string
}

func named(topic, number string) cctvEntry {
	return cctvEntry{
		re:   regexp.MustCompile(`(?i)^CCTV[_\-\s]?` + topic + `$`),
		name: "CCTV-" + number + " " + cctvNames[number],
	}
}

// Exact shapes checked before the numeric synthesis.
var cctvTable = []cctvEntry{
	{regexp.MustCompile(`(?i)^CCTV[_\-\s]?4K`), "CCTV-4K 超高清"},
	{regexp.MustCompile(`(?i)^CCTV[_\-\s]?8K`), "CCTV-8K 超高清"},
	{regexp.MustCompile(`^中央电视台[一二三四五六七八九十]?$`), "CCTV-1 综合"},
	named(`戏曲`, "11"),
	named(`音乐`, "15"),
	named(`少儿`, "14"),
	named(`新闻`, "13"),
	named(`纪录`, "9"),
	named(`体育`, "5"),
	named(`电影`, "6"),
	named(`电视剧`, "8"),
	named(`综艺`, "3"),
	named(`财经`, "2"),
}

const numeral = `[\d一二三四五六七八九十]+\+?`

var (
	cctvNumbered = regexp.MustCompile(`(?i)^CCTV[_\-\s]?(` + numeral + `)\s*(.*)$`)
	yangshi      = regexp.MustCompile(`^央视(` + numeral + `)\s*(.*)$`)
)

// StandardizeCCTV rewrites a central-broadcaster label to "CCTV-<n> <name>".
// Labels it does not recognise come back unchanged.
func StandardizeCCTV(name string) string {
	upper := cctvAnyCase.ReplaceAllLiteralString(name, "CCTV")
	for _, e := range cctvTable {
		if e.re.MatchString(upper) {
			return e.name
		}
	}
	if m := cctvNumbered.FindStringSubmatch(upper); m != nil {
		return synthesize(m[1], m[2])
	}
	if m := yangshi.FindStringSubmatch(upper); m != nil {
		return synthesize(m[1], m[2])
	}
	return name
}

func synthesize(num, suffix string) string {
	plus := strings.HasSuffix(num, "+")
	num = ToArabic(strings.TrimSuffix(num, "+"))
	if plus {
		num += "+"
	}
	if known, ok := cctvNames[num]; ok {
		return "CCTV-" + num + " " + known
	}
	suffix = strings.TrimSpace(suffix)
	if suffix == "" {
		return "CCTV-" + num
	}
	return "CCTV-" + num + " " + suffix
}

var digits = map[rune]int{
	'一': 1, '二': 2, '三': 3, '四': 4, '五': 5,
	'六': 6, '七': 7, '八': 8, '九': 9,
}

// ToArabic converts a Chinese numeral up to 99 (一, 十一, 二十三) to digits.
// Arabic input and anything it cannot read are returned as is.
func ToArabic(s string) string {
	rs := []rune(s)
	if len(rs) == 0 {
		return s
	}
	tens := -1
	for i, r := range rs {
		if r == '十' {
			if tens >= 0 {
				return s
			}
			switch i {
			case 0:
				tens = 1
			case 1:
				d, ok := digits[rs[0]]
				if !ok {
					return s
				}
				tens = d
			default:
				return s
			}
		}
	}
	if tens < 0 {
		if len(rs) != 1 {
			return s
		}
		d, ok := digits[rs[0]]
		if !ok {
			return s
		}
		return strconv.Itoa(d)
	}
	unit := 0
	last := rs[len(rs)-1]
	if last != '十' {
		d, ok := digits[last]
		if !ok {
			return s
		}
		unit = d
	}
	if len(rs) > 3 || (len(rs) == 3 && rs[1] != '十') {
		return s
	}
	return strconv.Itoa(tens*10 + unit)
}
