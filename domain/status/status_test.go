package status_test

import (
	"testing"
	"time"

	"github.com/artpar/installpay/domain/invoice"
	"github.com/artpar/installpay/domain/status"
	"github.com/shopspring/decimal"
)

func day(s string) time.Time {
	t, err := invoice.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr(t time.Time) *time.Time { return &t }

func TestFold(t *testing.T) {
	today := day("2024-02-15")
	paid := invoice.Invoice{Status: invoice.StatusPaid, DueDate: day("2024-01-01")}
	late := invoice.Invoice{Status: invoice.StatusOpen, DueDate: day("2024-02-10")}
	future := invoice.Invoice{Status: invoice.StatusOpen, DueDate: day("2024-03-10")}

	tests := []struct {
		name    string
		current status.GroupStatus
		inv     invoice.Invoice
		want    status.GroupStatus
	}{
		{"paid keeps completed", status.Completed, paid, status.Completed},
		{"paid keeps active", status.Active, paid, status.Active},
		{"paid keeps late", status.Late, paid, status.Late},
		{"future activates", status.Completed, future, status.Active},
		{"late from completed", status.Completed, late, status.Late},
		{"late from active", status.Active, late, status.Late},
		{"future never downgrades late", status.Late, future, status.Late},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status.Fold(tt.current, tt.inv, today); got != tt.want {
				t.Errorf("Fold() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassify_LateDominates(t *testing.T) {
	today := day("2024-02-15")
	members := []invoice.Invoice{
		{Status: invoice.StatusOpen, DueDate: day("2024-02-01")},
		{Status: invoice.StatusOpen, DueDate: day("2024-03-01")},
		{Status: invoice.StatusOpen, DueDate: day("2024-04-01")},
		{Status: invoice.StatusSlipIssued, DueDate: day("2024-05-01")},
	}

	if got := status.Classify(members, today); got != status.Late {
		t.Errorf("Classify() = %s, want late", got)
	}

	// Order of members must not matter.
	reversed := []invoice.Invoice{members[3], members[2], members[1], members[0]}
	if got := status.Classify(reversed, today); got != status.Late {
		t.Errorf("Classify(reversed) = %s, want late", got)
	}
}

func TestClassify_CompletedOnlyWhenAllPaid(t *testing.T) {
	today := day("2024-02-15")
	allPaid := []invoice.Invoice{
		{Status: invoice.StatusPaid, DueDate: day("2024-01-01")},
		{Status: invoice.StatusPaid, DueDate: day("2024-02-01")},
	}
	if got := status.Classify(allPaid, today); got != status.Completed {
		t.Errorf("Classify() = %s, want completed", got)
	}

	awaiting := append(allPaid, invoice.Invoice{Status: invoice.StatusAwaitingSignature, DueDate: day("2024-06-01")})
	if got := status.Classify(awaiting, today); got != status.Active {
		t.Errorf("Classify() = %s, want active", got)
	}
}

func TestLess(t *testing.T) {
	jan := ptr(day("2024-01-10"))
	feb := ptr(day("2024-02-10"))

	tests := []struct {
		name  string
		aS    status.GroupStatus
		aNext *time.Time
		bS    status.GroupStatus
		bNext *time.Time
		want  bool
	}{
		{"late before active", status.Late, feb, status.Active, jan, true},
		{"active before completed", status.Active, feb, status.Completed, nil, true},
		{"completed not before late", status.Completed, nil, status.Late, jan, false},
		{"earlier due first", status.Active, jan, status.Active, feb, true},
		{"later due second", status.Active, feb, status.Active, jan, false},
		{"nil due last", status.Late, nil, status.Late, jan, false},
		{"dated before nil", status.Late, jan, status.Late, nil, true},
		{"completed keeps order", status.Completed, nil, status.Completed, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status.Less(tt.aS, tt.aNext, tt.bS, tt.bNext); got != tt.want {
				t.Errorf("Less() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	today := day("2024-02-15")
	invoices := []invoice.Invoice{
		{ID: "paid", Status: invoice.StatusPaid, DueDate: day("2024-01-10"), Amount: decimal.NewFromInt(300)},
		{ID: "late", Status: invoice.StatusOpen, DueDate: day("2024-02-10"), Amount: decimal.NewFromInt(300)},
		{ID: "slip", Status: invoice.StatusSlipIssued, DueDate: day("2024-02-01"), Amount: decimal.NewFromInt(50)},
		{ID: "mar", Status: invoice.StatusOpen, DueDate: day("2024-03-10"), Amount: decimal.NewFromInt(300)},
		{ID: "today", Status: invoice.StatusOpen, DueDate: day("2024-02-15"), Amount: decimal.NewFromInt(20)},
	}

	s := status.Summarize(invoices, today)

	if s.OpenCount != 4 {
		t.Errorf("OpenCount = %d, want 4", s.OpenCount)
	}
	if !s.OpenAmount.Equal(decimal.NewFromInt(670)) {
		t.Errorf("OpenAmount = %s, want 670", s.OpenAmount)
	}
	if s.LateCount != 2 || !s.HasLate() {
		t.Errorf("LateCount = %d, want 2", s.LateCount)
	}
	if !s.LateAmount.Equal(decimal.NewFromInt(350)) {
		t.Errorf("LateAmount = %s, want 350", s.LateAmount)
	}
	if s.NextDue == nil || s.NextDue.ID != "today" {
		t.Errorf("NextDue = %+v, want today", s.NextDue)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := status.Summarize(nil, day("2024-01-01"))
	if s.OpenCount != 0 || s.HasLate() || s.NextDue != nil {
		t.Errorf("unexpected summary %+v", s)
	}
	if !s.OpenAmount.IsZero() || !s.LateAmount.IsZero() {
		t.Error("amounts should be zero")
	}
}
