package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var corpus = []struct {
	raw, want string
}{
	{"CCTV1", "CCTV-1 综合"},
	{"cctv-1", "CCTV-1 综合"},
	{"央视一", "CCTV-1 综合"},
	{"CCTV-1综合", "CCTV-1 综合"},
	{"中央电视台", "CCTV-1 综合"},
	{"ＣＣＴＶ－１３", "CCTV-13 新闻"},
	{"CCTV-13 新闻 HD", "CCTV-13 新闻"},
	{"央视十三", "CCTV-13 新闻"},
	{"CCTV-新闻", "CCTV-13 新闻"},
	{"CCTV 戏曲", "CCTV-11 戏曲"},
	{"CCTV17", "CCTV-17 农业农村"},
	{"CCTV5+", "CCTV-5+ 体育赛事"},
	{"CCTV 4K", "CCTV-4K 超高清"},
	{"cctv4k超高清", "CCTV-4K 超高清"},
	{"CCTV-8K超高清 HEVC", "CCTV-8K 超高清"},
	{"CCTV-20", "CCTV-20"},
	{"湖南卫视 [HD][IPV6]", "湖南卫视"},
	{"湖南卫视 湖南卫视", "湖南卫视"},
	{"北京卫视高清", "北京卫视"},
	{"浙江卫视 1080P", "浙江卫视"},
	{"东方卫视 频道", "东方卫视"},
	{"广东体育 直播", "广东体育"},
	{"翡翠台 HEVC", "翡翠台"},
	{"凤凰中文【高清】", "凤凰中文"},
	{"湖南卫视_直播", "湖南卫视"},
	{"东方卫视-频道", "东方卫视"},
	{"广东体育|台", "广东体育"},
	{"北京卫视 & 直播", "北京卫视"},
}

func TestName(t *testing.T) {
	for _, tt := range corpus {
		assert.Equal(t, tt.want, Name(tt.raw), "Name(%q)", tt.raw)
	}
}

func TestName_idempotent(t *testing.T) {
	for _, tt := range corpus {
		once := Name(tt.raw)
		assert.Equal(t, once, Name(once), "Name(Name(%q))", tt.raw)
	}
}

func TestName_fallsBackOnTooShort(t *testing.T) {
	for _, raw := range []string{"4K", "A", "[HD]"} {
		assert.Equal(t, raw, Name(raw))
	}
}

func TestName_spellingsConverge(t *testing.T) {
	a, b, c := Name("CCTV1"), Name("cctv-1"), Name("央视一")
	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
}

func TestStandardizeCCTV_unknownUntouched(t *testing.T) {
	assert.Equal(t, "CCTV 新科动漫", StandardizeCCTV("CCTV 新科动漫"))
}

func TestToArabic(t *testing.T) {
	tests := []struct{ in, want string }{
		{"一", "1"},
		{"九", "9"},
		{"十", "10"},
		{"十三", "13"},
		{"二十", "20"},
		{"二十三", "23"},
		{"17", "17"},
		{"百", "百"},
		{"十十", "十十"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToArabic(tt.in), "ToArabic(%q)", tt.in)
	}
}
