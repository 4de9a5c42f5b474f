package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/quidfin/web/pkg/idx"
)

// CSPReport is one content-security-policy violation as reported by a
// browser. Raw keeps the full csp-report JSON for later inspection; the
// extracted columns exist for querying.
type CSPReport struct {
	ID                idx.ID
	DocumentURI       string
	ViolatedDirective string
	BlockedURI        string
	Raw               string
	ReceivedAt        time.Time
}

// CSPReports is the repository for CSP violation reports.
type CSPReports struct {
	db *sql.DB
}

// Insert stores a report. An empty ID is assigned a fresh ULID.
func (r *CSPReports) Insert(ctx context.Context, report CSPReport) error {
	if report.ID.IsZero() {
		report.ID = idx.New()
	}
	if report.ReceivedAt.IsZero() {
		report.ReceivedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO csp_reports (id, document_uri, violated_directive, blocked_uri, raw, received_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		report.ID.String(),
		report.DocumentURI,
		report.ViolatedDirective,
		report.BlockedURI,
		report.Raw,
		report.ReceivedAt,
	)
	return err
}

// Recent returns up to limit reports, newest first.
func (r *CSPReports) Recent(ctx context.Context, limit int) ([]CSPReport, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, document_uri, violated_directive, blocked_uri, raw, received_at
		FROM csp_reports
		ORDER BY received_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []CSPReport
	for rows.Next() {
		var report CSPReport
		var id string
		if err := rows.Scan(&id, &report.DocumentURI, &report.ViolatedDirective,
			&report.BlockedURI, &report.Raw, &report.ReceivedAt); err != nil {
			return nil, err
		}
		report.ID = idx.ID(id)
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
