package fetch

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrNoTargetDocument means the overview page lists no document of the target form type.
	ErrNoTargetDocument = errors.New("no document of the target form type")
	// ErrNoAcceptedDate means the overview page has no usable acceptance timestamp.
	ErrNoAcceptedDate = errors.New("no accepted date on overview page")
)

const (
	acceptedLayout  = "2006-01-02 15:04:05"
	inlineViewerArg = "ix?doc="
)

// Overview is what the processor needs from a filing's index page
type Overview struct {
	AcceptedAt   time.Time
	DocumentHref string // site-relative path of the target document
}

// OverviewPath returns the site-relative index page for an index entry's document path
func OverviewPath(documentPath string) string {
	return "/Archives/" + strings.TrimPrefix(strings.TrimSuffix(documentPath, ".txt"), "/") + "-index.html"
}

// ResolveDocumentHref maps an inline viewer link (/ix?doc=/Archives/...) to the underlying
// document path. Other links are returned unchanged.
func ResolveDocumentHref(href string) string {
	if i := strings.Index(href, inlineViewerArg); i >= 0 {
		href = href[i+len(inlineViewerArg):]
		if !strings.HasPrefix(href, "/") {
			href = "/" + href
		}
	}
	return href
}

// ParseOverview extracts the target document link and the accepted timestamp from an
// overview page. The timestamp is interpreted in loc.
func ParseOverview(page []byte, formType string, loc *time.Location) (*Overview, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse overview page: %w", err)
	}

	var href string
	doc.Find(`table.tableFile[summary="Document Format Files"]`).First().Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 4 || strings.TrimSpace(cells.Eq(3).Text()) != formType {
			return true
		}
		if link, ok := cells.Eq(2).Find("a[href]").First().Attr("href"); ok {
			href = link
		}
		return false
	})
	if href == "" {
		return nil, ErrNoTargetDocument
	}

	accepted := doc.Find("div.infoHead").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) == "Accepted"
	}).First().NextAllFiltered("div.info").First()
	if accepted.Length() == 0 {
		return nil, ErrNoAcceptedDate
	}

	acceptedAt, err := time.ParseInLocation(acceptedLayout, strings.TrimSpace(accepted.Text()), loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAcceptedDate, err)
	}

	return &Overview{
		AcceptedAt:   acceptedAt,
		DocumentHref: ResolveDocumentHref(href),
	}, nil
}
