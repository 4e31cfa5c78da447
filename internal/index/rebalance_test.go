package index

import (
	"reflect"
	"testing"

	"equal-weight-index/internal/domain"
)

func TestDetectRebalance_FirstDayAllAdded(t *testing.T) {
	rb := DetectRebalance(domain.NewTickerSet("MSFT", "AAPL"), domain.TickerSet{})

	if !rb.IsRebalance {
		t.Error("expected first day to be a rebalance")
	}
	if !reflect.DeepEqual(rb.Added, []string{"AAPL", "MSFT"}) {
		t.Errorf("expected added [AAPL MSFT], got %v", rb.Added)
	}
	if len(rb.Removed) != 0 {
		t.Errorf("expected no removed tickers, got %v", rb.Removed)
	}
	if rb.ChangeCount != 2 {
		t.Errorf("expected change count 2, got %d", rb.ChangeCount)
	}
}

func TestDetectRebalance_Unchanged(t *testing.T) {
	rb := DetectRebalance(domain.NewTickerSet("A", "B"), domain.NewTickerSet("B", "A"))

	if rb.IsRebalance {
		t.Error("expected no rebalance for identical sets")
	}
	if rb.ChangeCount != 0 || len(rb.Added) != 0 || len(rb.Removed) != 0 {
		t.Errorf("expected empty diff, got %+v", rb)
	}
}

func TestDetectRebalance_Swap(t *testing.T) {
	rb := DetectRebalance(domain.NewTickerSet("A", "C", "D"), domain.NewTickerSet("A", "B"))

	if !rb.IsRebalance {
		t.Error("expected rebalance")
	}
	if !reflect.DeepEqual(rb.Added, []string{"C", "D"}) {
		t.Errorf("expected added [C D], got %v", rb.Added)
	}
	if !reflect.DeepEqual(rb.Removed, []string{"B"}) {
		t.Errorf("expected removed [B], got %v", rb.Removed)
	}
	if rb.ChangeCount != 3 {
		t.Errorf("expected change count 3, got %d", rb.ChangeCount)
	}
}

func TestDetectRebalance_BothEmpty(t *testing.T) {
	rb := DetectRebalance(domain.TickerSet{}, domain.TickerSet{})
	if rb.IsRebalance {
		t.Error("two empty sets are equal, expected no rebalance")
	}
}
