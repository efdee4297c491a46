package lending

import "time"

type BorrowRequest struct {
	ItemID string `json:"itemId"`
}

type LoanResponse struct {
	LoanID     string     `json:"loanId"`
	UserID     string     `json:"userId"`
	ItemID     string     `json:"itemId"`
	BorrowedAt time.Time  `json:"borrowedAt"`
	ReturnedAt *time.Time `json:"returnedAt,omitempty"`
	Status     string     `json:"status"`
}

type ReturnResponse struct {
	OK bool `json:"ok"`
}

func buildLoanResponse(l *Loan) LoanResponse {
	resp := LoanResponse{
		LoanID:     l.LoanID,
		UserID:     l.UserID,
		ItemID:     l.ItemID,
		BorrowedAt: l.BorrowedAt,
		Status:     l.Status,
	}
	if l.ReturnedAt.Valid {
		t := l.ReturnedAt.Time
		resp.ReturnedAt = &t
	}
	return resp
}
