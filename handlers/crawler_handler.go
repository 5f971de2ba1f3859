package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gongmoju-info/gongmoju-backend/jobs"
)

type CrawlerHandler struct {
	CrawlJob *jobs.DailyCrawlJob
}

func NewCrawlerHandler(crawlJob *jobs.DailyCrawlJob) *CrawlerHandler {
	return &CrawlerHandler{CrawlJob: crawlJob}
}

// TriggerCrawl runs one crawl on demand. A fatal list-page failure maps to
// 502 (the source site is the upstream); an overlapping run maps to 409.
func (h *CrawlerHandler) TriggerCrawl(c *fiber.Ctx) error {
	result, err := h.CrawlJob.Trigger(c.Context())
	if err != nil {
		if errors.Is(err, jobs.ErrCrawlInProgress) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}
