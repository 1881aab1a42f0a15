package scrape

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		in   string
		want ServiceCategory
	}{
		{"historical_2024-01-01", CategoryHistorical},
		{"HISTORICAL-run-7", CategoryHistorical},
		{"historical_api_1700000000", CategoryHistoricalAPI},
		{"Historical-API", CategoryHistoricalAPI},
		{"current_1700000000", CategoryCurrent},
		{"current-api-run", CategoryCurrentAPI},
		{"CurrentAPI", CategoryCurrentAPI},
		{"historical_current_api", CategoryHistoricalAPI},
		{"historical_current", CategoryHistorical},
		{"api_only", CategoryUnknown},
		{"session-42", CategoryUnknown},
		{"", CategoryUnknown},
	}
	for _, tc := range cases {
		if got := Classify(tc.in); got != tc.want {
			t.Fatalf("Classify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		if Classify("current_api_x") != CategoryCurrentAPI {
			t.Fatalf("expected stable classification")
		}
	}
}

func TestServiceCategory_Family(t *testing.T) {
	if CategoryHistoricalAPI.Family() != "historical" || CategoryHistorical.Family() != "historical" {
		t.Fatalf("historical family mismatch")
	}
	if CategoryCurrentAPI.Family() != "current" || CategoryCurrent.Family() != "current" {
		t.Fatalf("current family mismatch")
	}
	if CategoryUnknown.Family() != "unknown" {
		t.Fatalf("unknown family mismatch")
	}
}

func TestAnnotate(t *testing.T) {
	v := Annotate(Session{SessionID: "current_api_1", Status: SessionStatusCompleted})
	if v.ServiceType != CategoryCurrentAPI {
		t.Fatalf("expected currentAPI, got %q", v.ServiceType)
	}
	if v.SessionID != "current_api_1" {
		t.Fatalf("expected session fields to be embedded")
	}
}
