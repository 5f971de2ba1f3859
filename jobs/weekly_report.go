package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/gongmoju-info/gongmoju-backend/services"
	"github.com/sirupsen/logrus"
)

// seoulLocation pins the weekly window to KST regardless of server zone.
var seoulLocation = time.FixedZone("KST", 9*60*60)

// perRecipientDelay keeps the digest batch under the mail provider's rate
// limits.
const perRecipientDelay = 100 * time.Millisecond

// WeeklyReportJob queries the coming week's subscription and listing
// schedule and mails the digest to every active verified subscriber.
type WeeklyReportJob struct {
	IPOService        *services.IPOService
	SubscriberService *services.SubscriberService
	MailService       *services.MailService
	AppBaseURL        string
}

func NewWeeklyReportJob(ipoService *services.IPOService, subscriberService *services.SubscriberService, mailService *services.MailService, appBaseURL string) *WeeklyReportJob {
	return &WeeklyReportJob{
		IPOService:        ipoService,
		SubscriberService: subscriberService,
		MailService:       mailService,
		AppBaseURL:        appBaseURL,
	}
}

// Run distributes one weekly report. Per-recipient failures are logged and
// absorbed so one bad address does not stop the batch.
func (j *WeeklyReportJob) Run() {
	logrus.Info("Starting weekly report distribution")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	now := time.Now().In(seoulLocation)
	weekStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekEnd := weekStart.AddDate(0, 0, 7)

	upcomingIPOs, err := j.IPOService.GetUpcomingIPOs(ctx, weekStart, weekEnd)
	if err != nil {
		logrus.Errorf("Weekly report failed to query upcoming IPOs: %v", err)
		return
	}
	upcomingListings, err := j.IPOService.GetUpcomingListings(ctx, weekStart, weekEnd)
	if err != nil {
		logrus.Errorf("Weekly report failed to query upcoming listings: %v", err)
		return
	}

	if len(upcomingIPOs) == 0 && len(upcomingListings) == 0 {
		logrus.Info("No upcoming IPOs or listings this week, skipping report")
		return
	}

	subscribers, err := j.SubscriberService.ActiveVerifiedSubscribers(ctx)
	if err != nil {
		logrus.Errorf("Weekly report failed to query subscribers: %v", err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"subscriptions": len(upcomingIPOs),
		"listings":      len(upcomingListings),
		"subscribers":   len(subscribers),
	}).Info("Weekly report contents assembled")

	digest := services.BuildWeeklyDigest(
		upcomingIPOs, upcomingListings,
		weekStart.Format("2006.1.2"), weekEnd.Format("2006.1.2"),
	)

	sentCount := 0
	for _, subscriber := range subscribers {
		unsubscribeURL := fmt.Sprintf("%s/api/v1/subscribers/unsubscribe?token=%s", j.AppBaseURL, subscriber.UnsubscribeToken)
		personalized := services.AppendUnsubscribeFooter(digest, unsubscribeURL)

		if err := j.MailService.SendWeeklyReport(subscriber.Email, personalized); err != nil {
			// Logged by the mail service; continue with the next recipient.
			continue
		}
		sentCount++
		time.Sleep(perRecipientDelay)
	}

	logrus.WithFields(logrus.Fields{
		"sent":  sentCount,
		"total": len(subscribers),
	}).Info("Weekly report distribution completed")
}
