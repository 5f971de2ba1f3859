package services

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/gongmoju-info/gongmoju-backend/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// SMTPConfig holds the outbound mail account.
type SMTPConfig struct {
	Server       string
	Port         int
	EmailAddress string
	Password     string
}

// MailService sends verification codes and the weekly digest over SMTP.
type MailService struct {
	config SMTPConfig
}

func NewMailService(config SMTPConfig) *MailService {
	return &MailService{config: config}
}

func (s *MailService) send(to, subject string, htmlBody []byte) error {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("공모주 알리미 <%s>", s.config.EmailAddress)
	mail.To = []string{to}
	mail.Subject = subject
	mail.HTML = htmlBody

	address := fmt.Sprintf("%s:%d", s.config.Server, s.config.Port)
	auth := smtp.PlainAuth("", s.config.EmailAddress, s.config.Password, s.config.Server)

	err := mail.Send(address, auth)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(address, nil)
	}
	return err
}

// SendVerificationCode mails the 6-digit subscription code.
func (s *MailService) SendVerificationCode(to, code string) error {
	body := fmt.Sprintf(`
		<h1>이메일 인증</h1>
		<p>아래 인증번호를 입력하여 구독을 완료해주세요.</p>
		<h2 style="color: #4F46E5; letter-spacing: 5px;">%s</h2>
		<p>본 메일은 발신 전용입니다.</p>`, code)

	if err := s.send(to, "[공모주 알리미] 이메일 인증번호", []byte(body)); err != nil {
		logrus.WithField("email", maskEmail(to)).Errorf("Failed to send verification email: %v", err)
		return err
	}
	logrus.WithField("email", maskEmail(to)).Info("Verification email sent")
	return nil
}

// SendWeeklyReport mails one personalized digest. Send failures are
// returned so the caller can log and continue with the next recipient.
func (s *MailService) SendWeeklyReport(to, htmlContent string) error {
	if err := s.send(to, "[공모주 알리미] 이번 주 청약 일정 리포트", []byte(htmlContent)); err != nil {
		logrus.WithField("email", maskEmail(to)).Errorf("Failed to send weekly report: %v", err)
		return err
	}
	logrus.WithField("email", maskEmail(to)).Info("Weekly report sent")
	return nil
}

// BuildWeeklyDigest renders the shared portion of the weekly report.
func BuildWeeklyDigest(upcomingIPOs, upcomingListings []models.IPO, weekStart, weekEnd string) string {
	var builder strings.Builder

	builder.WriteString("<h1>[공모주 알리미] 이번 주 일정 안내</h1>")
	builder.WriteString(fmt.Sprintf("<p>이번 주(%s ~ %s) 예정된 공모주 일정입니다.</p>", weekStart, weekEnd))

	if len(upcomingIPOs) > 0 {
		builder.WriteString("<h2>청약 일정</h2><ul>")
		for _, ipo := range upcomingIPOs {
			builder.WriteString(fmt.Sprintf(
				`<li style="margin-bottom: 5px;"><strong>%s</strong> (%s ~ %s)</li>`,
				ipo.Name, formatDigestDate(ipo.SubStart), formatDigestDate(ipo.SubEnd)))
		}
		builder.WriteString("</ul>")
	} else {
		builder.WriteString("<p>이번 주 청약 예정인 종목이 없습니다.</p>")
	}

	if len(upcomingListings) > 0 {
		builder.WriteString("<h2>상장 일정</h2><ul>")
		for _, ipo := range upcomingListings {
			builder.WriteString(fmt.Sprintf(
				`<li style="margin-bottom: 5px;"><strong>%s</strong> (상장일: %s)</li>`,
				ipo.Name, formatDigestDate(ipo.ListDate)))
		}
		builder.WriteString("</ul>")
	}

	return builder.String()
}

// AppendUnsubscribeFooter personalizes a digest with the recipient's
// unsubscribe link.
func AppendUnsubscribeFooter(digest, unsubscribeURL string) string {
	return digest + fmt.Sprintf(`
		<hr style="margin: 20px 0; border: 0; border-top: 1px solid #eee;" />
		<div style="text-align: center; font-size: 12px; color: #888;">
			<p>본 메일은 주간 리포트 구독 신청에 의해 발송되었습니다.</p>
			<a href="%s" style="color: #888; text-decoration: underline;">수신 거부 (Unsubscribe)</a>
		</div>`, unsubscribeURL)
}

func formatDigestDate(date *time.Time) string {
	if date == nil {
		return "미정"
	}
	return date.Format("2006.1.2")
}
