package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gongmoju-info/gongmoju-backend/models"
	"github.com/gongmoju-info/gongmoju-backend/shared"
	"github.com/sirupsen/logrus"
)

// CrawlerConfiguration holds the crawl target and pacing parameters.
type CrawlerConfiguration struct {
	BaseURL            string        // Site root, used to resolve relative detail links
	ListURL            string        // 공모주 청약일정 list page
	HTTPRequestTimeout time.Duration // Maximum time to wait for one page
	PolitenessDelay    time.Duration // Minimum gap between detail-page fetches
	MaxRetryAttempts   int           // Backoff retries per page fetch
}

// NewDefaultCrawlerConfiguration returns production defaults for 38.co.kr.
func NewDefaultCrawlerConfiguration() *CrawlerConfiguration {
	return &CrawlerConfiguration{
		BaseURL:            "http://www.38.co.kr",
		ListURL:            "http://www.38.co.kr/html/fund/index.htm?o=k",
		HTTPRequestTimeout: 30 * time.Second,
		PolitenessDelay:    500 * time.Millisecond,
		MaxRetryAttempts:   2,
	}
}

// listTableSelector targets the schedule table by its summary attribute.
// Structural drift on the site requires updating this selector; there is no
// recovery path by design.
const listTableSelector = `table[summary="공모주 청약일정"] tbody tr`

// nameCellSelector identifies the company-name cell inside a data row.
// Header and spacer rows have no such cell and are skipped.
const nameCellSelector = `td[height="30"]`

// listColumns maps list-page table columns to fields. The extraction is
// positional and brittle on purpose: the site has kept this layout for
// years, and drift is handled by editing this table, not by heuristics.
var listColumns = struct {
	Schedule    int
	OfferPrice  int
	BandPrice   int
	Competition int
	Underwriter int
}{
	Schedule:    1,
	OfferPrice:  2,
	BandPrice:   3,
	Competition: 4,
	Underwriter: 5,
}

// Detail-page labels. Substring labels sit in wide header cells
// ("의무보유확약 비율"); exact labels are short cells matched whole to avoid
// colliding with longer headings that embed them.
const (
	labelLockupRate     = "의무보유확약"
	labelCompetition    = "기관경쟁률"
	labelOfferPrice     = "확정공모가"
	labelRefundDate     = "환불일"
	labelListDate       = "상장일"
	labelShareholder    = "주주명"
	labelOwnershipRatio = "지분율"
	labelOTCAnchor      = "삽니다 (가격참고)"
)

// totalRowMarkers identify the shareholder table's total/subtotal row.
var totalRowMarkers = []string{"합계", "소 계", "계"}

// listRow is one parsed row of the list page plus the link to its detail
// page, when the name cell carries one.
type listRow struct {
	ipo       models.IPO
	detailURL string
}

// detailFields are the refinements scraped from one detail page. All of
// them stay zero-valued when the page could not be fetched or parsed.
type detailFields struct {
	offerPrice        *int64
	competition       string
	lockupRate        string
	circulatingSupply string
	otcPrice          string
	refundDate        *time.Time
	listDate          *time.Time
}

// CrawlResult is the aggregate outcome handed back to the trigger caller.
type CrawlResult struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// IPOUpserter is the storage seam of the pipeline. IPOService implements
// it against Postgres.
type IPOUpserter interface {
	UpsertIPO(ctx context.Context, item models.IPO) error
}

// CrawlerService drives the scrape → parse → reconcile → upsert pipeline.
// Rows are processed strictly sequentially: the politeness delay between
// detail fetches is the whole point of the single-threaded design.
type CrawlerService struct {
	configuration     *CrawlerConfiguration
	httpClient        *http.Client
	politenessLimiter *shared.PolitenessLimiter
	ipoService        IPOUpserter
}

// NewCrawlerService creates the crawl pipeline. A nil config selects the
// production defaults.
func NewCrawlerService(config *CrawlerConfiguration, ipoService IPOUpserter) *CrawlerService {
	if config == nil {
		config = NewDefaultCrawlerConfiguration()
	}
	return &CrawlerService{
		configuration:     config,
		httpClient:        shared.NewCrawlHTTPClient(config.HTTPRequestTimeout),
		politenessLimiter: shared.NewPolitenessLimiter(config.PolitenessDelay),
		ipoService:        ipoService,
	}
}

// RunCrawl executes one full crawl run. A list-page fetch or decode failure
// is fatal and propagated; every later failure is isolated to its row. The
// returned count is the number of rows actually persisted.
func (service *CrawlerService) RunCrawl(ctx context.Context) (*CrawlResult, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "CrawlerService",
		"list_url":  service.configuration.ListURL,
	})
	logger.Info("Starting crawl run")

	listDocument, err := service.fetchDocument(service.configuration.ListURL)
	if err != nil {
		fatal := shared.NewServiceError(shared.ErrorCategoryNetwork, "RunCrawl", "list page unavailable", err)
		fatal.LogError()
		return nil, fatal
	}

	rows := service.parseListRows(listDocument)
	logger.WithField("row_count", len(rows)).Info("Parsed list rows")

	successCount := 0
	var rowErrors []error

	for index, row := range rows {
		ipo := row.ipo

		if row.detailURL != "" {
			service.politenessLimiter.Wait()

			detail, detailErr := service.scrapeDetailPage(row.detailURL)
			if detailErr != nil {
				// Row-local: keep the list-page fields, leave the
				// detail refinements absent.
				logger.WithFields(logrus.Fields{
					"ipo_name":   ipo.Name,
					"detail_url": row.detailURL,
				}).Warnf("Detail page failed, keeping list fields only: %v", detailErr)
				rowErrors = append(rowErrors, fmt.Errorf("detail for %s: %w", ipo.Name, detailErr))
			} else {
				ipo = reconcile(ipo, detail)
			}
		}

		if upsertErr := service.ipoService.UpsertIPO(ctx, ipo); upsertErr != nil {
			logger.WithField("ipo_name", ipo.Name).Errorf("Upsert failed, continuing with next row: %v", upsertErr)
			rowErrors = append(rowErrors, fmt.Errorf("upsert %s: %w", ipo.Name, upsertErr))
			continue
		}
		successCount++

		logger.WithFields(logrus.Fields{
			"ipo_index": index + 1,
			"ipo_name":  ipo.Name,
		}).Debug("Row persisted")
	}

	message := fmt.Sprintf("crawled %d items", successCount)
	if len(rowErrors) > 0 {
		message = shared.BuildBatchErrorSummary(successCount, len(rowErrors), rowErrors)
	}

	logger.WithFields(logrus.Fields{
		"persisted": successCount,
		"failures":  len(rowErrors),
	}).Info("Crawl run completed")

	return &CrawlResult{Count: successCount, Message: message}, nil
}

// fetchDocument retrieves a page, decodes EUC-KR and parses the DOM.
func (service *CrawlerService) fetchDocument(pageURL string) (*goquery.Document, error) {
	html, err := shared.FetchEUCKRPage(service.httpClient, pageURL, service.configuration.MaxRetryAttempts)
	if err != nil {
		return nil, err
	}
	document, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML of %s: %w", pageURL, err)
	}
	return document, nil
}

// parseListRows walks the schedule table and extracts coarse fields per
// IPO. Rows without a name cell are headers or spacers, skipped silently.
func (service *CrawlerService) parseListRows(document *goquery.Document) []listRow {
	var rows []listRow

	document.Find(listTableSelector).Each(func(_ int, rowSelection *goquery.Selection) {
		nameCell := rowSelection.Find(nameCellSelector).First()
		name := CleanCompanyName(nameCell.Text())
		if name == "" {
			return
		}

		cells := rowSelection.Find("td")
		cellText := func(index int) string {
			return strings.TrimSpace(cells.Eq(index).Text())
		}

		ipo := models.IPO{Name: name}
		ipo.SubStart, ipo.SubEnd = ParseDateRange(cellText(listColumns.Schedule))
		ipo.OfferPrice = ParsePrice(cellText(listColumns.OfferPrice))
		ipo.BandLow, ipo.BandHigh = ParseBandPrice(cellText(listColumns.BandPrice))
		ipo.Competition = cellText(listColumns.Competition)
		ipo.Underwriter = cellText(listColumns.Underwriter)

		rows = append(rows, listRow{
			ipo:       ipo,
			detailURL: service.resolveDetailLink(nameCell),
		})
	})

	return rows
}

// resolveDetailLink extracts the optional detail-page anchor from the name
// cell and resolves it against the site root.
func (service *CrawlerService) resolveDetailLink(nameCell *goquery.Selection) string {
	href, exists := nameCell.Find("a").First().Attr("href")
	if !exists || strings.TrimSpace(href) == "" {
		return ""
	}

	base, err := url.Parse(service.configuration.BaseURL)
	if err != nil {
		return ""
	}
	relative, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		logrus.WithField("href", href).Debug("Unresolvable detail link, skipping")
		return ""
	}
	return base.ResolveReference(relative).String()
}

// scrapeDetailPage fetches one detail page and extracts its refinements.
func (service *CrawlerService) scrapeDetailPage(detailURL string) (detailFields, error) {
	document, err := service.fetchDocument(detailURL)
	if err != nil {
		return detailFields{}, err
	}
	return service.extractDetailFields(document), nil
}

// extractDetailFields reads the refinement fields via label proximity. Each
// lookup is independent; a missing label just leaves its field absent.
func (service *CrawlerService) extractDetailFields(document *goquery.Document) detailFields {
	fields := detailFields{
		lockupRate:  findValueByLabel(document, labelLockupRate, false),
		competition: findValueByLabel(document, labelCompetition, false),
		refundDate:  ParseSingleDate(findValueByLabel(document, labelRefundDate, true)),
		listDate:    ParseSingleDate(findValueByLabel(document, labelListDate, true)),
		otcPrice:    extractOTCPrice(document),
	}
	fields.offerPrice = ParsePrice(findValueByLabel(document, labelOfferPrice, false))
	fields.circulatingSupply = extractCirculatingSupply(document, fields.offerPrice)
	return fields
}

// findValueByLabel scans all table cells for one whose text matches the
// label, and reads the next sibling cell as the value. Placeholder dashes
// are rejected. The label set and matching strategy live here so HTML
// traversal mechanics can change without touching the extractors.
func findValueByLabel(document *goquery.Document, label string, exactMatch bool) string {
	value := ""
	document.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		cellText := normalizeCellText(cell.Text())

		matched := strings.Contains(cellText, label)
		if exactMatch {
			matched = cellText == label
		}
		if !matched {
			return true
		}

		siblingText := strings.TrimSpace(cell.NextFiltered("td").Text())
		if IsPlaceholder(siblingText) {
			return true
		}
		value = siblingText
		return false
	})
	return value
}

// extractCirculatingSupply locates the shareholder table's total row and
// derives the tradable supply. The table is found among "leaf" tables (no
// nested table) whose text carries both the shareholder and ownership-ratio
// headers; within it the last total/subtotal row holds the numbers.
func extractCirculatingSupply(document *goquery.Document, offerPrice *int64) string {
	var shareholderTable *goquery.Selection
	document.Find("table").Each(func(_ int, table *goquery.Selection) {
		if table.Find("table").Length() > 0 {
			return
		}
		tableText := table.Text()
		if strings.Contains(tableText, labelShareholder) && strings.Contains(tableText, labelOwnershipRatio) {
			shareholderTable = table
		}
	})
	if shareholderTable == nil {
		return ""
	}

	var totalRow *goquery.Selection
	shareholderTable.Find("tr").Each(func(_ int, row *goquery.Selection) {
		rowText := normalizeCellText(row.Text())
		for _, marker := range totalRowMarkers {
			if strings.Contains(rowText, marker) {
				totalRow = row
				return
			}
		}
	})
	if totalRow == nil {
		return ""
	}

	// Right-to-left: the percentage cell comes last, the share count sits
	// immediately before it.
	cells := totalRow.Find("td")
	for index := cells.Length() - 1; index > 0; index-- {
		percentText := strings.TrimSpace(cells.Eq(index).Text())
		if !strings.Contains(percentText, "%") {
			continue
		}
		shareCountText := strings.TrimSpace(cells.Eq(index - 1).Text())
		return DeriveCirculatingSupply(shareCountText, percentText, offerPrice)
	}
	return ""
}

// extractOTCPrice reads the pre-listing gray-market price. The anchor cell
// "삽니다 (가격참고)" marks the quote table; the first strictly numeric cell
// in the rows below the anchor's row is the price. Rows above the anchor
// belong to other quote columns and must not be read.
func extractOTCPrice(document *goquery.Document) string {
	var anchorCell *goquery.Selection
	document.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if normalizeCellText(cell.Text()) == labelOTCAnchor {
			anchorCell = cell
			return false
		}
		return true
	})
	if anchorCell == nil {
		return ""
	}

	price := ""
	anchorCell.Closest("tr").NextAllFiltered("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		row.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			cellText := strings.TrimSpace(cell.Text())
			if isNumericCell(cellText) {
				price = cellText
				return false
			}
			return true
		})
		return price == ""
	})
	return price
}

// reconcile merges list-page and detail-page data for one IPO. The
// competition ratio prefers the list value unless it was blank or a
// placeholder; the remaining detail fields have no list counterpart and are
// taken as scraped.
func reconcile(listIPO models.IPO, detail detailFields) models.IPO {
	merged := listIPO

	if IsPlaceholder(merged.Competition) && detail.competition != "" {
		merged.Competition = detail.competition
	}
	if merged.OfferPrice == nil && detail.offerPrice != nil {
		merged.OfferPrice = detail.offerPrice
	}

	merged.LockupRate = detail.lockupRate
	merged.CirculatingSupply = detail.circulatingSupply
	merged.OTCPrice = detail.otcPrice
	merged.RefundDate = detail.refundDate
	merged.ListDate = detail.listDate

	return merged
}

// normalizeCellText collapses runs of whitespace (the site pads labels with
// non-breaking spaces) into single spaces.
func normalizeCellText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
