package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gongmoju-info/gongmoju-backend/models"
	"github.com/sirupsen/logrus"
)

// IPOService owns persistence of IPO records.
type IPOService struct {
	DB *sql.DB
}

func NewIPOService(db *sql.DB) *IPOService {
	return &IPOService{DB: db}
}

const ipoColumns = `
	name, sub_start, sub_end, offer_price, band_low, band_high,
	competition, underwriter, lockup_rate, circulating_supply, otc_price,
	refund_date, list_date, created_at, updated_at`

// UpsertIPO writes one crawled record keyed by the cleaned company name.
// Repeated crawls update the existing row; fields reflect the latest crawl.
func (s *IPOService) UpsertIPO(ctx context.Context, item models.IPO) error {
	if item.Name == "" {
		return fmt.Errorf("refusing to upsert IPO without a name")
	}

	query := `
		INSERT INTO ipos (
			name, sub_start, sub_end, offer_price, band_low, band_high,
			competition, underwriter, lockup_rate, circulating_supply, otc_price,
			refund_date, list_date
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13
		)
		ON CONFLICT (name) DO UPDATE SET
			sub_start = EXCLUDED.sub_start,
			sub_end = EXCLUDED.sub_end,
			offer_price = EXCLUDED.offer_price,
			band_low = EXCLUDED.band_low,
			band_high = EXCLUDED.band_high,
			competition = EXCLUDED.competition,
			underwriter = EXCLUDED.underwriter,
			lockup_rate = EXCLUDED.lockup_rate,
			circulating_supply = EXCLUDED.circulating_supply,
			otc_price = EXCLUDED.otc_price,
			refund_date = EXCLUDED.refund_date,
			list_date = EXCLUDED.list_date,
			updated_at = CURRENT_TIMESTAMP;
	`

	_, err := s.DB.ExecContext(ctx, query,
		item.Name, item.SubStart, item.SubEnd, item.OfferPrice, item.BandLow, item.BandHigh,
		item.Competition, item.Underwriter, item.LockupRate, item.CirculatingSupply, item.OTCPrice,
		item.RefundDate, item.ListDate,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert IPO %s: %w", item.Name, err)
	}

	logrus.WithField("ipo_name", item.Name).Debug("IPO upserted")
	return nil
}

// GetIPOs returns all records ordered by subscription start, newest first.
func (s *IPOService) GetIPOs(ctx context.Context) ([]models.IPO, error) {
	query := `SELECT ` + ipoColumns + ` FROM ipos ORDER BY sub_start DESC NULLS LAST, name`

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query IPOs: %w", err)
	}
	defer rows.Close()

	return scanIPOs(rows)
}

// GetIPOByName returns one record, or nil when the name is unknown.
func (s *IPOService) GetIPOByName(ctx context.Context, name string) (*models.IPO, error) {
	query := `SELECT ` + ipoColumns + ` FROM ipos WHERE name = $1`

	rows, err := s.DB.QueryContext(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query IPO %s: %w", name, err)
	}
	defer rows.Close()

	ipos, err := scanIPOs(rows)
	if err != nil {
		return nil, err
	}
	if len(ipos) == 0 {
		return nil, nil
	}
	return &ipos[0], nil
}

// GetUpcomingIPOs returns records whose subscription window touches
// [from, until). sub_end is date-granular and inclusive through end of day,
// so the lower bound compares against the window end.
func (s *IPOService) GetUpcomingIPOs(ctx context.Context, from, until time.Time) ([]models.IPO, error) {
	query := `SELECT ` + ipoColumns + ` FROM ipos
		WHERE (sub_start >= $1 AND sub_start < $2)
		   OR (sub_end >= $1 AND sub_end < $2)
		ORDER BY sub_start ASC`

	rows, err := s.DB.QueryContext(ctx, query, from, until)
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming IPOs: %w", err)
	}
	defer rows.Close()

	return scanIPOs(rows)
}

// GetUpcomingListings returns records listing within [from, until).
func (s *IPOService) GetUpcomingListings(ctx context.Context, from, until time.Time) ([]models.IPO, error) {
	query := `SELECT ` + ipoColumns + ` FROM ipos
		WHERE list_date >= $1 AND list_date < $2
		ORDER BY list_date ASC`

	rows, err := s.DB.QueryContext(ctx, query, from, until)
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming listings: %w", err)
	}
	defer rows.Close()

	return scanIPOs(rows)
}

func scanIPOs(rows *sql.Rows) ([]models.IPO, error) {
	var ipos []models.IPO
	for rows.Next() {
		var ipo models.IPO
		err := rows.Scan(
			&ipo.Name, &ipo.SubStart, &ipo.SubEnd, &ipo.OfferPrice, &ipo.BandLow, &ipo.BandHigh,
			&ipo.Competition, &ipo.Underwriter, &ipo.LockupRate, &ipo.CirculatingSupply, &ipo.OTCPrice,
			&ipo.RefundDate, &ipo.ListDate, &ipo.CreatedAt, &ipo.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan IPO row: %w", err)
		}
		ipos = append(ipos, ipo)
	}
	return ipos, rows.Err()
}
