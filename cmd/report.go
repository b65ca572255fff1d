package cmd

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/shouni/go-news-crawl/internal/pipeline"
)

// renderFeedTable はシンボルごとのフィード解決結果を表形式で出力します。
func renderFeedTable(w io.Writer, summary *pipeline.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Symbol", "Links", "Feed"})

	for _, f := range summary.Feeds {
		status := "ok"
		if f.Err != nil {
			status = f.Err.Error()
		}
		t.AppendRow(table.Row{f.Identifier, f.Links, status})
	}
	t.AppendFooter(table.Row{"Total", summary.Links, ""})
	t.Render()
}

// renderFailureTable は失敗したリンクを表形式で出力します。失敗がなければ何も出力しません。
func renderFailureTable(w io.Writer, summary *pipeline.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Symbol", "URL", "Reason"})

	rows := 0
	for _, o := range summary.Outcomes {
		if o.OK() {
			continue
		}
		t.AppendRow(table.Row{o.Link.Index, o.Link.Identifier, o.Link.URL, o.Reason})
		rows++
	}
	if rows > 0 {
		t.Render()
	}
}
