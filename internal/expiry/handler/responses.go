package handler

import (
	"time"

	"vendorhub/internal/expiry"
)

const dateLayout = "2006-01-02"

type ackResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

type sentResponse struct {
	Sent bool `json:"sent"`
}

type expiringDocumentResponse struct {
	DocumentID      string  `json:"document_id"`
	DocumentType    string  `json:"document_type"`
	ExpiryDate      string  `json:"expiry_date"`
	DaysUntilExpiry int     `json:"days_until_expiry"`
	AlertCount      int     `json:"alert_count"`
	LastAlertAt     *string `json:"last_alert_at,omitempty"`
	Acknowledged    bool    `json:"acknowledged"`
}

func fromExpiringDocuments(docs []expiry.SupplierExpiringDocument) []expiringDocumentResponse {
	out := make([]expiringDocumentResponse, 0, len(docs))
	for _, d := range docs {
		resp := expiringDocumentResponse{
			DocumentID:      d.DocumentID.String(),
			DocumentType:    string(d.DocumentType),
			ExpiryDate:      d.ExpiryDate.Format(dateLayout),
			DaysUntilExpiry: d.DaysUntilExpiry,
			AlertCount:      d.AlertCount,
			Acknowledged:    d.Acknowledged,
		}
		if d.LastAlertAt != nil {
			v := d.LastAlertAt.Format(time.RFC3339)
			resp.LastAlertAt = &v
		}
		out = append(out, resp)
	}
	return out
}

type dashboardResponse struct {
	CriticalCount int                        `json:"critical_count"`
	WarningCount  int                        `json:"warning_count"`
	InfoCount     int                        `json:"info_count"`
	ExpiredCount  int                        `json:"expired_count"`
	Documents     []expiringDocumentResponse `json:"documents"`
}

func fromDashboard(s expiry.DashboardSummary) dashboardResponse {
	return dashboardResponse{
		CriticalCount: s.CriticalCount,
		WarningCount:  s.WarningCount,
		InfoCount:     s.InfoCount,
		ExpiredCount:  s.ExpiredCount,
		Documents:     fromExpiringDocuments(s.Documents),
	}
}

type pendingAlertResponse struct {
	AlertID         string `json:"alert_id"`
	DocumentID      string `json:"document_id"`
	SupplierID      string `json:"supplier_id"`
	CompanyName     string `json:"company_name"`
	Email           string `json:"email"`
	DocumentType    string `json:"document_type"`
	ExpiryDate      string `json:"expiry_date"`
	AlertType       string `json:"alert_type"`
	DaysUntilExpiry int    `json:"days_until_expiry"`
}

func fromPendingAlerts(alerts []expiry.PendingAlert) []pendingAlertResponse {
	out := make([]pendingAlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, pendingAlertResponse{
			AlertID:         a.AlertID.String(),
			DocumentID:      a.DocumentID.String(),
			SupplierID:      a.SupplierID.String(),
			CompanyName:     a.CompanyName,
			Email:           a.Email,
			DocumentType:    string(a.DocumentType),
			ExpiryDate:      a.ExpiryDate.Format(dateLayout),
			AlertType:       string(a.Bucket),
			DaysUntilExpiry: a.DaysUntilExpiry,
		})
	}
	return out
}

type statsResponse struct {
	TotalAlerts        int `json:"total_alerts"`
	PendingAlerts      int `json:"pending_alerts"`
	SentAlerts         int `json:"sent_alerts"`
	AcknowledgedAlerts int `json:"acknowledged_alerts"`
	ExpiredDocuments   int `json:"expired_documents"`
	CriticalAlerts     int `json:"critical_alerts"`
	WarningAlerts      int `json:"warning_alerts"`
}

func fromStats(s expiry.Stats) statsResponse {
	return statsResponse(s)
}

type sweepResponse struct {
	DocumentsProcessed int `json:"documents_processed"`
	AlertsCreated      int `json:"alerts_created"`
}

func fromSweepResult(r expiry.SweepResult) sweepResponse {
	return sweepResponse{
		DocumentsProcessed: r.DocumentsProcessed,
		AlertsCreated:      r.AlertsCreated,
	}
}
