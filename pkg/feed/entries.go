package feed

import (
	"time"

	"github.com/mmcdole/gofeed"
)

// Entry はフィードの1エントリのうち、クロールと表示に使う項目です。
type Entry struct {
	Title     string
	Link      string
	Published *time.Time
}

// Entries はリンクを持つエントリをフィード順に返します。
// 訪問先のないエントリは除外します。
func Entries(f *gofeed.Feed) []Entry {
	if f == nil {
		return []Entry{}
	}
	entries := make([]Entry, 0, len(f.Items))
	for _, item := range f.Items {
		if item == nil || item.Link == "" {
			continue
		}
		entries = append(entries, Entry{
			Title:     item.Title,
			Link:      item.Link,
			Published: item.PublishedParsed,
		})
	}
	return entries
}

// Links は Entries のリンクだけを返します。
func Links(f *gofeed.Feed) []string {
	entries := Entries(f)
	links := make([]string, len(entries))
	for i, e := range entries {
		links[i] = e.Link
	}
	return links
}
