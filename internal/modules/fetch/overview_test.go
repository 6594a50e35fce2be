package fetch

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// overviewPage renders a minimal filing index page in EDGAR's layout
func overviewPage(accepted string, rows ...[2]string) string {
	table := ""
	for i, r := range rows {
		table += fmt.Sprintf(`<tr><td scope="row">%d</td><td scope="row">Document</td><td scope="row"><a href="%s">doc</a></td><td scope="row">%s</td><td scope="row">1000</td></tr>`, i+1, r[0], r[1])
	}
	info := ""
	if accepted != "" {
		info = `<div class="infoHead">Accepted</div><div class="info">` + accepted + `</div>`
	}
	return `<html><body>
<div class="formGrouping">
<div class="infoHead">Filing Date</div><div class="info">2021-05-03</div>
` + info + `
<div class="infoHead">Period of Report</div><div class="info">2021-03-31</div>
</div>
<table class="tableFile" summary="Document Format Files">
<tr><th scope="col">Seq</th><th scope="col">Description</th><th scope="col">Document</th><th scope="col">Type</th><th scope="col">Size</th></tr>
` + table + `
</table>
<table class="tableFile" summary="Data Files"><tr><td>1</td><td>x</td><td><a href="/x.xml">x</a></td><td>10-Q</td></tr></table>
</body></html>`
}

func TestParseOverview(t *testing.T) {
	eastern, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	page := overviewPage("2021-05-03 17:00:00",
		[2]string{"/Archives/edgar/data/123/ex31.htm", "EX-31.1"},
		[2]string{"/ix?doc=/Archives/edgar/data/123/acme-10q.htm", "10-Q"},
		[2]string{"/Archives/edgar/data/123/other.htm", "10-Q"},
	)

	overview, err := ParseOverview([]byte(page), "10-Q", eastern)
	require.NoError(t, err)
	assert.Equal(t, "/Archives/edgar/data/123/acme-10q.htm", overview.DocumentHref)
	assert.Equal(t, time.Date(2021, 5, 3, 17, 0, 0, 0, eastern), overview.AcceptedAt)
	assert.Equal(t, 17, overview.AcceptedAt.Hour())
}

func TestParseOverview_Skips(t *testing.T) {
	tests := []struct {
		name string
		page string
		err  error
	}{
		{"no target row", overviewPage("2021-05-03 17:00:00", [2]string{"/a.htm", "10-Q/A"}), ErrNoTargetDocument},
		{"no accepted block", overviewPage("", [2]string{"/a.htm", "10-Q"}), ErrNoAcceptedDate},
		{"unparseable accepted", overviewPage("yesterday", [2]string{"/a.htm", "10-Q"}), ErrNoAcceptedDate},
		{"not an overview page", "<html><body>Service unavailable</body></html>", ErrNoTargetDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOverview([]byte(tt.page), "10-Q", time.UTC)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}
}

func TestOverviewPath(t *testing.T) {
	assert.Equal(t,
		"/Archives/edgar/data/123/0000123-21-000001-index.html",
		OverviewPath("edgar/data/123/0000123-21-000001.txt"))
}

func TestResolveDocumentHref(t *testing.T) {
	tests := []struct {
		href     string
		expected string
	}{
		{"/ix?doc=/Archives/edgar/data/123/acme-10q.htm", "/Archives/edgar/data/123/acme-10q.htm"},
		{"/ix?doc=Archives/edgar/data/123/acme-10q.htm", "/Archives/edgar/data/123/acme-10q.htm"},
		{"/Archives/edgar/data/123/acme-10q.htm", "/Archives/edgar/data/123/acme-10q.htm"},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveDocumentHref(tt.href))
		})
	}
}
