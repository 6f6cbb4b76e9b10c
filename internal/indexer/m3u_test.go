package indexer

import (
	"strings"
	"testing"

	"github.com/plextuner/iptv-collector/internal/catalog"
)

func TestParseM3UBytes_empty(t *testing.T) {
	entries, err := ParseM3UBytes([]byte(""), "src")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty; got %d entries", len(entries))
	}
}

func TestParseM3U_extinf(t *testing.T) {
	m3u := `#EXTM3U x-tvg-url="http://epg"
#EXTINF:-1 tvg-id="cctv1" tvg-name="CCTV1" tvg-logo="http://logo/cctv1.png" group-title="央视频道",CCTV-1 综合 高清
http://example.com/cctv1.m3u8
#EXTINF:-1 group-title='卫视',湖南卫视 4K
#EXTVLCOPT:http-user-agent=Mozilla
http://example.com/hunan.m3u8

#EXTINF:-1 tvg-name="Fallback Name",
http://example.com/noname
#EXTINF:-1,
http://example.com/unknown
`
	entries, err := ParseM3U(strings.NewReader(m3u), "http://src/list.m3u")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries; got %d: %+v", len(entries), entries)
	}
	want := catalog.RawEntry{
		OriginalName: "CCTV-1 综合 高清",
		URL:          "http://example.com/cctv1.m3u8",
		Group:        "央视频道",
		Logo:         "http://logo/cctv1.png",
		Quality:      catalog.QualityHD,
		Origin:       "http://src/list.m3u",
	}
	if entries[0] != want {
		t.Errorf("entries[0] = %+v, want %+v", entries[0], want)
	}
	if entries[1].Group != "卫视" || entries[1].Quality != catalog.Quality4K || entries[1].URL != "http://example.com/hunan.m3u8" {
		t.Errorf("entries[1] = %+v", entries[1])
	}
	if entries[2].OriginalName != "Fallback Name" {
		t.Errorf("entries[2] name = %q", entries[2].OriginalName)
	}
	if entries[3].OriginalName != DefaultName {
		t.Errorf("entries[3] name = %q", entries[3].OriginalName)
	}
}

func TestParseM3U_danglingEXTINF(t *testing.T) {
	m3u := "#EXTM3U\n#EXTINF:-1,Orphan\n"
	entries, err := ParseM3U(strings.NewReader(m3u), "src")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries for EXTINF without URL; got %+v", entries)
	}
}

func TestParseM3U_streamPlaylistHasNoChannels(t *testing.T) {
	for name, body := range map[string]string{
		"media":  "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n#EXTINF:10.0,\nseg0.ts\n#EXTINF:10.0,\nhttp://cdn/seg1.ts\n",
		"master": "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1280000\nhttp://cdn/low.m3u8\n",
	} {
		entries, err := ParseM3U(strings.NewReader(body), "src")
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Errorf("%s: expected no entries; got %+v", name, entries)
		}
	}
}

func TestParseM3U_relativeURLDropped(t *testing.T) {
	m3u := "#EXTM3U\n#EXTINF:-1,Relative\nlive/1.m3u8\n#EXTINF:-1,Absolute\nrtmp://example.com/live\n"
	entries, err := ParseM3U(strings.NewReader(m3u), "src")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].OriginalName != "Absolute" {
		t.Errorf("expected only the absolute entry; got %+v", entries)
	}
}

func TestParseM3U_textFormat(t *testing.T) {
	txt := "\ufeff央视频道,#genre#\nCCTV1,http://example.com/1.m3u8\nCCTV2,http://example.com/2.m3u8#http://backup/2.m3u8\n卫视频道,#genre#\n湖南卫视,http://example.com/hn.flv\nnot a channel line\n,http://example.com/noname\n"
	entries, err := ParseM3U(strings.NewReader(txt), "src")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries; got %d: %+v", len(entries), entries)
	}
	if entries[0].Group != "央视频道" || entries[0].OriginalName != "CCTV1" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].URL != "http://example.com/2.m3u8" {
		t.Errorf("entries[1].URL = %q", entries[1].URL)
	}
	if entries[2].Group != "卫视频道" {
		t.Errorf("entries[2].Group = %q", entries[2].Group)
	}
}

func TestParseEXTINF(t *testing.T) {
	m := parseEXTINF(`#EXTINF:-1 TVG-LOGO="http://l/a.png" group-title="A, B",Name`)
	if m["tvg-logo"] != "http://l/a.png" {
		t.Errorf("tvg-logo = %q", m["tvg-logo"])
	}
	if m["name"] != "Name" {
		t.Errorf("name = %q", m["name"])
	}
}
